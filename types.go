package propql

import (
	"github.com/nlstn/go-propql/internal/catalog"
	"github.com/nlstn/go-propql/internal/filter"
)

// Scope re-exports the compilation scope for external consumers.
type Scope = filter.Scope

// Compilation scopes.
const (
	ScopeEvent        = filter.ScopeEvent
	ScopePerson       = filter.ScopePerson
	ScopeSession      = filter.ScopeSession
	ScopeReplay       = filter.ScopeReplay
	ScopeReplayEntity = filter.ScopeReplayEntity
)

// PropertyType re-exports the property filter type for external consumers.
type PropertyType = filter.PropertyType

// Property filter types.
const (
	TypeEvent               = filter.TypeEvent
	TypeFeature             = filter.TypeFeature
	TypePerson              = filter.TypePerson
	TypeGroup               = filter.TypeGroup
	TypeSession             = filter.TypeSession
	TypeCohort              = filter.TypeCohort
	TypeStaticCohort        = filter.TypeStaticCohort
	TypePrecalculatedCohort = filter.TypePrecalculatedCohort
	TypeElement             = filter.TypeElement
	TypeHogQL               = filter.TypeHogQL
	TypeDataWarehouse       = filter.TypeDataWarehouse
	TypeDataWarehousePerson = filter.TypeDataWarehousePerson
)

// Operator re-exports the property filter operator for external consumers.
type Operator = filter.Operator

// Property filter operators.
const (
	OpExact        = filter.OpExact
	OpIsNot        = filter.OpIsNot
	OpIContains    = filter.OpIContains
	OpNotIContains = filter.OpNotIContains
	OpRegex        = filter.OpRegex
	OpNotRegex     = filter.OpNotRegex
	OpGt           = filter.OpGt
	OpGte          = filter.OpGte
	OpLt           = filter.OpLt
	OpLte          = filter.OpLte
	OpIsSet        = filter.OpIsSet
	OpIsNotSet     = filter.OpIsNotSet
	OpIsDateExact  = filter.OpIsDateExact
	OpIsDateBefore = filter.OpIsDateBefore
	OpIsDateAfter  = filter.OpIsDateAfter
)

// Property re-exports a single property filter for external consumers.
type Property = filter.Property

// GroupCombinator re-exports the group combinator for external consumers.
type GroupCombinator = filter.GroupCombinator

// Group combinators.
const (
	GroupAnd = filter.GroupAnd
	GroupOr  = filter.GroupOr
)

// PropertyGroup re-exports the boolean filter group for external consumers.
type PropertyGroup = filter.PropertyGroup

// EntityKind re-exports the query entity discriminator for external consumers.
type EntityKind = filter.EntityKind

// Entity kinds.
const (
	EntityEvent  = filter.EntityEvent
	EntityAction = filter.EntityAction
)

// Entity re-exports the query series subject for external consumers.
type Entity = filter.Entity

// Team re-exports the team context record for external consumers.
type Team = catalog.Team

// Action re-exports the stored action record for external consumers.
type Action = catalog.Action

// ActionStep re-exports a single action step for external consumers.
type ActionStep = catalog.ActionStep

// StringMatching re-exports the URL matching mode for external consumers.
type StringMatching = catalog.StringMatching

// URL matching modes for action steps.
const (
	MatchExact    = catalog.MatchExact
	MatchContains = catalog.MatchContains
	MatchRegex    = catalog.MatchRegex
)

// Cohort re-exports the cohort record for external consumers.
type Cohort = catalog.Cohort

// PropertyDefinition re-exports the declared property metadata record for
// external consumers.
type PropertyDefinition = catalog.PropertyDefinition

// Stores re-exports the catalog lookup bundle for external consumers.
// Build one from a MemoryStores, from GORM via WithDB, or from custom
// store implementations.
type Stores = catalog.Stores

// MemoryStores re-exports the in-memory catalog for external consumers.
type MemoryStores = catalog.MemoryStores

// NewMemoryStores returns an empty in-memory catalog.
func NewMemoryStores() *MemoryStores {
	return catalog.NewMemoryStores()
}
