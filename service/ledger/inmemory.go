// Package ledger provides in-process implementations of the asset and
// payment primitives. They back local development and the test
// harness; production deployments swap in adapters for the real
// registry and token contracts.
package ledger

import (
	"math/big"
	"sync"

	bCtx "github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/domain"
)

type assetKey struct {
	asset   domain.Address
	tokenId domain.TokenId
	holder  domain.Address
}

type balanceKey struct {
	token  domain.Address
	holder domain.Address
}

type allowanceKey struct {
	token   domain.Address
	holder  domain.Address
	spender domain.Address
}

type operatorKey struct {
	asset    domain.Address
	holder   domain.Address
	operator domain.Address
}

// InMemory keeps asset holdings and payment balances in maps guarded
// by one mutex. Every transfer is all-or-nothing under the lock, which
// matches the serialized-transaction model the engines assume. Assets()
// and Payments() expose the two primitive views over the shared state.
type InMemory struct {
	mu         sync.Mutex
	engine     domain.Address
	assets     map[assetKey]*big.Int
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
	operators  map[operatorKey]bool
}

// NewInMemory returns a ledger whose escrow account is `engine`.
func NewInMemory(engine domain.Address) *InMemory {
	return &InMemory{
		engine:     engine.ToLower(),
		assets:     map[assetKey]*big.Int{},
		balances:   map[balanceKey]*big.Int{},
		allowances: map[allowanceKey]*big.Int{},
		operators:  map[operatorKey]bool{},
	}
}

// EngineAddress returns the escrow account settlements pay into.
func (l *InMemory) EngineAddress() domain.Address {
	return l.engine
}

// Assets returns the asset registry view.
func (l *InMemory) Assets() domain.AssetRegistry {
	return assetView{l}
}

// Payments returns the payment ledger view.
func (l *InMemory) Payments() domain.PaymentLedger {
	return paymentView{l}
}

// MintAsset credits `quantity` of (asset, tokenId) to holder.
func (l *InMemory) MintAsset(asset domain.Address, tokenId domain.TokenId, holder domain.Address, quantity int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := assetKey{asset.ToLower(), tokenId, holder.ToLower()}
	l.assets[k] = new(big.Int).Add(l.assetBalance(k), big.NewInt(quantity))
}

// Mint credits `amount` of payment token to holder.
func (l *InMemory) Mint(token, holder domain.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := balanceKey{token.ToLower(), holder.ToLower()}
	l.balances[k] = new(big.Int).Add(l.balance(k), amount)
}

// Approve grants the spender an allowance over holder's payment token.
func (l *InMemory) Approve(token, holder, spender domain.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := allowanceKey{token.ToLower(), holder.ToLower(), spender.ToLower()}
	l.allowances[k] = new(big.Int).Set(amount)
}

// SetApprovalForAll lets `operator` move any of holder's units of the
// asset contract.
func (l *InMemory) SetApprovalForAll(asset, holder, operator domain.Address, approved bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.operators[operatorKey{asset.ToLower(), holder.ToLower(), operator.ToLower()}] = approved
}

type assetView struct {
	l *InMemory
}

func (v assetView) OwnerOf(c bCtx.Ctx, asset domain.Address, tokenId domain.TokenId) (domain.Address, error) {
	v.l.mu.Lock()
	defer v.l.mu.Unlock()
	for k, bal := range v.l.assets {
		if k.asset == asset.ToLower() && k.tokenId == tokenId && bal.Sign() > 0 {
			return k.holder, nil
		}
	}
	return domain.EmptyAddress, domain.ErrNotFound
}

func (v assetView) BalanceOf(c bCtx.Ctx, asset domain.Address, tokenId domain.TokenId, holder domain.Address) (*big.Int, error) {
	v.l.mu.Lock()
	defer v.l.mu.Unlock()
	return new(big.Int).Set(v.l.assetBalance(assetKey{asset.ToLower(), tokenId, holder.ToLower()})), nil
}

func (v assetView) IsApprovedOperator(c bCtx.Ctx, asset domain.Address, holder, operator domain.Address) (bool, error) {
	v.l.mu.Lock()
	defer v.l.mu.Unlock()
	return v.l.operators[operatorKey{asset.ToLower(), holder.ToLower(), operator.ToLower()}], nil
}

func (v assetView) Transfer(c bCtx.Ctx, asset domain.Address, tokenId domain.TokenId, from, to domain.Address, quantity *big.Int) error {
	v.l.mu.Lock()
	defer v.l.mu.Unlock()
	fromKey := assetKey{asset.ToLower(), tokenId, from.ToLower()}
	have := v.l.assetBalance(fromKey)
	if have.Cmp(quantity) < 0 {
		return domain.ErrInsufficientBalance
	}
	toKey := assetKey{asset.ToLower(), tokenId, to.ToLower()}
	v.l.assets[fromKey] = new(big.Int).Sub(have, quantity)
	v.l.assets[toKey] = new(big.Int).Add(v.l.assetBalance(toKey), quantity)
	return nil
}

type paymentView struct {
	l *InMemory
}

func (v paymentView) BalanceOf(c bCtx.Ctx, token domain.Address, holder domain.Address) (*big.Int, error) {
	v.l.mu.Lock()
	defer v.l.mu.Unlock()
	return new(big.Int).Set(v.l.balance(balanceKey{token.ToLower(), holder.ToLower()})), nil
}

func (v paymentView) AllowanceOf(c bCtx.Ctx, token domain.Address, holder, spender domain.Address) (*big.Int, error) {
	v.l.mu.Lock()
	defer v.l.mu.Unlock()
	return new(big.Int).Set(v.l.allowance(allowanceKey{token.ToLower(), holder.ToLower(), spender.ToLower()})), nil
}

func (v paymentView) TransferFrom(c bCtx.Ctx, token domain.Address, from, to domain.Address, amount *big.Int) error {
	v.l.mu.Lock()
	defer v.l.mu.Unlock()
	fromKey := balanceKey{token.ToLower(), from.ToLower()}
	if v.l.balance(fromKey).Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	allowKey := allowanceKey{token.ToLower(), from.ToLower(), v.l.engine}
	if v.l.allowance(allowKey).Cmp(amount) < 0 {
		return domain.ErrInsufficientAllowance
	}
	v.l.allowances[allowKey] = new(big.Int).Sub(v.l.allowance(allowKey), amount)
	v.l.move(token, from, to, amount)
	return nil
}

func (v paymentView) Transfer(c bCtx.Ctx, token domain.Address, to domain.Address, amount *big.Int) error {
	v.l.mu.Lock()
	defer v.l.mu.Unlock()
	fromKey := balanceKey{token.ToLower(), v.l.engine}
	if v.l.balance(fromKey).Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	v.l.move(token, v.l.engine, to, amount)
	return nil
}

func (l *InMemory) move(token, from, to domain.Address, amount *big.Int) {
	fromKey := balanceKey{token.ToLower(), from.ToLower()}
	toKey := balanceKey{token.ToLower(), to.ToLower()}
	l.balances[fromKey] = new(big.Int).Sub(l.balance(fromKey), amount)
	l.balances[toKey] = new(big.Int).Add(l.balance(toKey), amount)
}

func (l *InMemory) assetBalance(k assetKey) *big.Int {
	if v, ok := l.assets[k]; ok {
		return v
	}
	return big.NewInt(0)
}

func (l *InMemory) balance(k balanceKey) *big.Int {
	if v, ok := l.balances[k]; ok {
		return v
	}
	return big.NewInt(0)
}

func (l *InMemory) allowance(k allowanceKey) *big.Int {
	if v, ok := l.allowances[k]; ok {
		return v
	}
	return big.NewInt(0)
}
