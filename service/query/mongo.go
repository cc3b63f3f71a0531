// Package query provides the interface the stores use for querying
// mongo. It is a thin wrapper over the official driver; see
// https://godoc.org/go.mongodb.org/mongo-driver/mongo for details.
package query

import (
	"fmt"

	"github.com/x-xyz/settlement/base/ctx"
	"github.com/x-xyz/settlement/domain"
)

var (
	// ErrNotFound is mongo document not found error
	ErrNotFound = fmt.Errorf("document not found")

	// ErrDuplicateKey is an error when violating unique index
	ErrDuplicateKey = fmt.Errorf("duplicate key")

	// ErrCollScan is error for unindexed query
	ErrCollScan = fmt.Errorf("COLLSCAN is not allowed")
)

type patchOp struct {
	patchMany bool
}

// PatchOp is an alias for functional argument
type PatchOp func(*patchOp)

// WithPatchMany patches all entries selected instead of one.
func WithPatchMany(patchMany bool) PatchOp {
	return func(o *patchOp) {
		o.patchMany = patchMany
	}
}

// Mongo abstracts the mongo layer.
type Mongo interface {
	// Insert inserts a new document to the table
	Insert(context ctx.Ctx, table domain.Table, insert interface{}) error

	// FindOne gets data from the table
	FindOne(context ctx.Ctx, table domain.Table, query, result interface{}) error

	// Count returns counting for matched entries in the table
	Count(context ctx.Ctx, table domain.Table, selector interface{}) (n int, err error)

	// Upsert updates an entry if the selector already exists,
	// inserts it otherwise.
	Upsert(context ctx.Ctx, table domain.Table, selector, update interface{}) error

	// Search sorts by `sort` ("timestamp" ascending, "-timestamp"
	// descending); an empty sort leaves result order unspecified.
	Search(context ctx.Ctx, table domain.Table, offset, limit int, sort string, query, results interface{}) error

	// Remove removes an entry from the table.
	// Returns ErrNotFound if the selector does not match any documents.
	Remove(context ctx.Ctx, table domain.Table, selector interface{}) error

	// RemoveAll removes all entries matching the selector
	RemoveAll(context ctx.Ctx, table domain.Table, selector interface{}) (removedCnt int64, err error)

	// Patch patches an entry. Returns ErrNotFound if the selector does
	// not match any documents. Set WithPatchMany(true) to patch all.
	Patch(context ctx.Ctx, table domain.Table, selector, update interface{}, ops ...PatchOp) error

	// RunWithTransaction scopes `run` to one mongo transaction
	RunWithTransaction(context ctx.Ctx, run func(ctx.Ctx) error) error
}
