package domain

import "errors"

var (
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("Your Item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")

	// precondition violations, rejected before any state mutation
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrUnsupportedToken     = errors.New("payment token not supported")
	ErrNotOwnerOrUnapproved = errors.New("not owning item or not approved for transfer")
	ErrInvalidWindow        = errors.New("auction start time must precede end time")
	ErrInvalidBundle        = errors.New("bundle entries are empty or misaligned")

	// state conflicts, the caller lost a race against another settlement
	ErrListingNotFound = errors.New("listing not found")
	ErrBundleNotFound  = errors.New("bundle listing not found")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionExists   = errors.New("auction already exists")
	ErrNotStarted      = errors.New("listing has not started yet")
	ErrTokenMismatch   = errors.New("payment token mismatch")
	ErrPriceExceeded   = errors.New("price exceeds caller supplied ceiling")
	ErrAuctionNotOpen  = errors.New("auction is not open for bidding")
	ErrBidTooLow       = errors.New("bid is below required minimum")
	ErrAuctionNotEnded = errors.New("auction has not ended yet")
	ErrAlreadyResulted = errors.New("auction already resulted")
	ErrNoBids          = errors.New("auction has no bids")
	ErrBidsExist       = errors.New("auction already has bids")

	// escrow-transfer failures abort the enclosing operation
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)
