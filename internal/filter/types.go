// Package filter compiles analytics property filters, boolean filter
// groups, and action definitions into the ast expression tree. It owns
// input normalization, operator semantics, field-chain resolution, and the
// elements-chain matchers; catalog lookups are injected read-only stores.
package filter

// Scope selects the logical table a compile call resolves fields against.
type Scope string

// Compilation scopes.
const (
	ScopeEvent        Scope = "event"
	ScopePerson       Scope = "person"
	ScopeSession      Scope = "session"
	ScopeReplay       Scope = "replay"
	ScopeReplayEntity Scope = "replay_entity"
)

// PropertyType is the declared type of a property filter.
type PropertyType string

// Property filter types.
const (
	TypeEvent               PropertyType = "event"
	TypeFeature             PropertyType = "feature"
	TypePerson              PropertyType = "person"
	TypeGroup               PropertyType = "group"
	TypeSession             PropertyType = "session"
	TypeCohort              PropertyType = "cohort"
	TypeStaticCohort        PropertyType = "static-cohort"
	TypePrecalculatedCohort PropertyType = "precalculated-cohort"
	TypeElement             PropertyType = "element"
	TypeHogQL               PropertyType = "hogql"
	TypeDataWarehouse       PropertyType = "data_warehouse"
	TypeDataWarehousePerson PropertyType = "data_warehouse_person_property"
)

// Operator is a property filter operator.
type Operator string

// Property filter operators. Min, Max, In and NotIn are recognized input
// values but have no comparison semantics here; compiling them reports a
// not-implemented error.
const (
	OpExact        Operator = "exact"
	OpIsNot        Operator = "is_not"
	OpIContains    Operator = "icontains"
	OpNotIContains Operator = "not_icontains"
	OpRegex        Operator = "regex"
	OpNotRegex     Operator = "not_regex"
	OpGt           Operator = "gt"
	OpGte          Operator = "gte"
	OpLt           Operator = "lt"
	OpLte          Operator = "lte"
	OpIsSet        Operator = "is_set"
	OpIsNotSet     Operator = "is_not_set"
	OpIsDateExact  Operator = "is_date_exact"
	OpIsDateBefore Operator = "is_date_before"
	OpIsDateAfter  Operator = "is_date_after"
	OpMin          Operator = "min"
	OpMax          Operator = "max"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
)

// Property is a single property filter. Type defaults to event and
// Operator to exact when left empty, matching how stored filters omit
// them.
type Property struct {
	Type           PropertyType `mapstructure:"type"`
	Key            string       `mapstructure:"key"`
	Operator       Operator     `mapstructure:"operator"`
	Value          any          `mapstructure:"value"`
	GroupTypeIndex *int         `mapstructure:"group_type_index"`
}

// GroupCombinator joins the children of a property group.
type GroupCombinator string

// Group combinators.
const (
	GroupAnd GroupCombinator = "AND"
	GroupOr  GroupCombinator = "OR"
)

// PropertyGroup combines child filters under one boolean combinator.
// Values may hold Property values, nested groups, raw maps, or prebuilt
// expressions; each child is normalized independently.
type PropertyGroup struct {
	Combinator GroupCombinator
	Values     []any
}

// EntityKind discriminates query entities.
type EntityKind string

// Entity kinds.
const (
	EntityEvent  EntityKind = "event"
	EntityAction EntityKind = "action"
)

// Entity is a query series subject: either a plain event (nil Event
// matches all events) or a reference to a stored action.
type Entity struct {
	Kind     EntityKind
	Event    *string
	ActionID int
}
