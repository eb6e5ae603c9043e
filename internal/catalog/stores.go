package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound marks lookups whose target does not exist. Match it with
// errors.Is; the concrete *NotFoundError carries the missing key.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a catalog record that could not be resolved.
type NotFoundError struct {
	Kind string
	Key  string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find %s for key %q", e.Kind, e.Key)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PropertyDefinitionStore looks up declared property types. Find returns
// (nil, nil) when no definition exists: absence disables boolean coercion
// but is never an error.
type PropertyDefinitionStore interface {
	Find(teamID int, name string, kind PropertyKind, groupTypeIndex *int) (*PropertyDefinition, error)
}

// CohortStore resolves cohorts by team and id. A missing cohort returns a
// *NotFoundError.
type CohortStore interface {
	ByID(teamID int, id int) (*Cohort, error)
}

// ActionStore resolves actions by team and id. A missing action returns a
// *NotFoundError.
type ActionStore interface {
	ByID(teamID int, id int) (*Action, error)
}

// DataWarehouseStore resolves the persons-table joins and the column
// types of warehouse tables and views. Missing joins and tables return
// *NotFoundError; these failures are surfaced to the caller, never
// swallowed.
type DataWarehouseStore interface {
	PersonsJoin(teamID int, fieldName string) (*DataWarehouseJoin, error)
	TableColumns(teamID int, tableName string) (map[string]ColumnType, error)
}

// Stores bundles the read-only lookups a compiler needs. Individual
// fields may be nil when a caller knows the corresponding filter types
// cannot occur; the compiler reports a configuration error if a nil
// store is reached.
type Stores struct {
	PropertyDefinitions PropertyDefinitionStore
	Cohorts             CohortStore
	Actions             ActionStore
	DataWarehouse       DataWarehouseStore
}
