// Package catalog holds the read-only records the filter compiler consults:
// the team context, property definitions, cohorts, actions, and the
// data-warehouse join/table metadata. The compiler never writes any of
// these; stores expose lookups only.
package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Team is the tenant context a compile call runs under. All catalog
// lookups are scoped by the team, and the team carries the defaults a
// query runner needs: timezone, base currency, and the stored
// test-account filter list.
type Team struct {
	ID                 int       `gorm:"primaryKey"`
	ProjectID          int       `gorm:"index"`
	UUID               uuid.UUID `gorm:"type:uuid"`
	Name               string
	Timezone           string
	BaseCurrency       string
	TestAccountFilters JSONList `gorm:"type:json"`
}

// PropertyKind classifies where a property definition lives.
type PropertyKind string

// Property definition kinds.
const (
	PropertyKindEvent   PropertyKind = "event"
	PropertyKindPerson  PropertyKind = "person"
	PropertyKindGroup   PropertyKind = "group"
	PropertyKindSession PropertyKind = "session"
)

// PropertyValueType is the declared value type of a property definition.
type PropertyValueType string

// Declared property value types.
const (
	PropertyValueString   PropertyValueType = "String"
	PropertyValueNumeric  PropertyValueType = "Numeric"
	PropertyValueBoolean  PropertyValueType = "Boolean"
	PropertyValueDateTime PropertyValueType = "DateTime"
	PropertyValueDuration PropertyValueType = "Duration"
)

// PropertyDefinition records the declared type of a property. The compiler
// reads it for exactly one purpose: deciding whether a "true"/"false"
// string literal should be coerced to a real boolean.
type PropertyDefinition struct {
	ID             uint `gorm:"primaryKey"`
	TeamID         int  `gorm:"index:idx_property_definitions_lookup"`
	Name           string
	Kind           PropertyKind
	GroupTypeIndex *int
	ValueType      PropertyValueType
}

// Cohort is a saved set of person ids. Membership compiles to an
// IN COHORT comparison carrying the cohort's id.
type Cohort struct {
	ID       int `gorm:"primaryKey"`
	TeamID   int `gorm:"index"`
	Name     string
	IsStatic bool
	Deleted  bool
}

// StringMatching selects how href/text/url step values are matched.
type StringMatching string

// Matching modes for action step strings.
const (
	MatchExact    StringMatching = "exact"
	MatchContains StringMatching = "contains"
	MatchRegex    StringMatching = "regex"
)

// ActionStep is one alternative within an action. Element matchers
// (selector, tag name, href, text) only apply when the step's event is
// the autocapture sentinel.
type ActionStep struct {
	Event        *string         `json:"event,omitempty"`
	Selector     *string         `json:"selector,omitempty"`
	TagName      *string         `json:"tag_name,omitempty"`
	Text         *string         `json:"text,omitempty"`
	TextMatching *StringMatching `json:"text_matching,omitempty"`
	Href         *string         `json:"href,omitempty"`
	HrefMatching *StringMatching `json:"href_matching,omitempty"`
	URL          *string         `json:"url,omitempty"`
	URLMatching  *StringMatching `json:"url_matching,omitempty"`
	Properties   []any           `json:"properties,omitempty"`
}

// Action is a user-defined "thing that happened": an ordered list of match
// steps, each an independent alternative.
type Action struct {
	ID      int `gorm:"primaryKey"`
	TeamID  int `gorm:"index"`
	Name    string
	Deleted bool
	Steps   ActionSteps `gorm:"type:json"`
}

// DataWarehouseJoin links the persons table to an external warehouse table
// under a field name. A property key "supplements: name" resolves through
// the join whose FieldName is "supplements".
type DataWarehouseJoin struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	TeamID           int       `gorm:"index"`
	SourceTableName  string
	SourceTableKey   string
	JoiningTableName string
	JoiningTableKey  string
	FieldName        string
}

// ColumnType is the declared type of a warehouse column.
type ColumnType string

// Warehouse column types.
const (
	ColumnString   ColumnType = "String"
	ColumnInteger  ColumnType = "Integer"
	ColumnFloat    ColumnType = "Float"
	ColumnBoolean  ColumnType = "Boolean"
	ColumnDateTime ColumnType = "DateTime"
)

// DataWarehouseTable is an external table mirrored into the warehouse.
type DataWarehouseTable struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	TeamID  int       `gorm:"index"`
	Name    string
	Columns ColumnMap `gorm:"type:json"`
}

// DataWarehouseSavedQuery is a saved view over warehouse tables. On
// lookup, views shadow tables of the same name.
type DataWarehouseSavedQuery struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	TeamID  int       `gorm:"index"`
	Name    string
	Columns ColumnMap `gorm:"type:json"`
}

// JSONList stores a heterogeneous JSON array in a single column.
type JSONList []any

// Value implements driver.Valuer.
func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]any(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *JSONList) Scan(value any) error {
	return scanJSON(value, (*[]any)(l))
}

// ActionSteps stores an action's steps as a JSON column.
type ActionSteps []ActionStep

// Value implements driver.Valuer.
func (s ActionSteps) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]ActionStep(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (s *ActionSteps) Scan(value any) error {
	return scanJSON(value, (*[]ActionStep)(s))
}

// ColumnMap stores a column-name to column-type mapping as a JSON column.
type ColumnMap map[string]ColumnType

// Value implements driver.Valuer.
func (m ColumnMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]ColumnType(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *ColumnMap) Scan(value any) error {
	return scanJSON(value, (*map[string]ColumnType)(m))
}

func scanJSON(value any, target any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, target)
	case string:
		return json.Unmarshal([]byte(v), target)
	}
	return fmt.Errorf("cannot scan %T into JSON column", value)
}
