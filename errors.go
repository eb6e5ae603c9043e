package propql

import (
	"github.com/nlstn/go-propql/internal/catalog"
	"github.com/nlstn/go-propql/internal/filter"
)

// Sentinel errors for common compile failures. Match them with errors.Is;
// the concrete error types carry the offending detail.
var (
	// ErrNotImplemented marks filters naming an operator, property type,
	// or scope combination the compiler has no semantics for.
	ErrNotImplemented = filter.ErrNotImplemented

	// ErrNotFound marks catalog lookups whose target does not exist:
	// cohorts, warehouse joins, and warehouse tables. Missing actions
	// referenced by an entity do not surface it; they compile to 1 = 2.
	ErrNotFound = catalog.ErrNotFound
)

// NotImplementedError re-exports the unsupported-construct error for
// external consumers. What names the construct that was rejected.
type NotImplementedError = filter.NotImplementedError

// NotFoundError re-exports the missing-catalog-record error for external
// consumers.
type NotFoundError = catalog.NotFoundError

// ParseError re-exports the expression parse error for external
// consumers. Pos is the byte offset into the expression string.
type ParseError = filter.ParseError
