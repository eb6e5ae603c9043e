package ast

import (
	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a 64-bit hash of the expression's printed form.
// Structurally equal trees hash identically, which makes the result usable
// as a dedup or grouping key for compiled filters. Expressions that fail
// to print (empty boolean nodes, nil children) hash to zero.
func Fingerprint(expr Expr) uint64 {
	text, err := Print(expr)
	if err != nil {
		return 0
	}
	return xxhash.Sum64String(text)
}
