package catalog

import "strconv"

// MemoryStores is an in-memory implementation of the catalog stores. It
// serves tests and callers that batch-loaded their records up front and
// want compiles without any database round trip.
type MemoryStores struct {
	Definitions []*PropertyDefinition
	Cohorts     map[int]*Cohort
	Actions     map[int]*Action
	Joins       []*DataWarehouseJoin
	Tables      map[string]ColumnMap
}

// NewMemoryStores returns an empty MemoryStores with all maps allocated.
func NewMemoryStores() *MemoryStores {
	return &MemoryStores{
		Cohorts: make(map[int]*Cohort),
		Actions: make(map[int]*Action),
		Tables:  make(map[string]ColumnMap),
	}
}

// Stores exposes the memory-backed lookups as a Stores bundle.
func (m *MemoryStores) Stores() Stores {
	return Stores{
		PropertyDefinitions: (*memoryPropertyDefinitions)(m),
		Cohorts:             (*memoryCohorts)(m),
		Actions:             (*memoryActions)(m),
		DataWarehouse:       (*memoryDataWarehouse)(m),
	}
}

type memoryPropertyDefinitions MemoryStores

func (m *memoryPropertyDefinitions) Find(teamID int, name string, kind PropertyKind, groupTypeIndex *int) (*PropertyDefinition, error) {
	for _, def := range m.Definitions {
		if def.TeamID != teamID || def.Name != name || def.Kind != kind {
			continue
		}
		if kind == PropertyKindGroup && !sameGroupIndex(def.GroupTypeIndex, groupTypeIndex) {
			continue
		}
		return def, nil
	}
	return nil, nil
}

func sameGroupIndex(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type memoryCohorts MemoryStores

func (m *memoryCohorts) ByID(teamID int, id int) (*Cohort, error) {
	cohort, ok := m.Cohorts[id]
	if !ok || cohort.TeamID != teamID {
		return nil, &NotFoundError{Kind: "cohort", Key: strconv.Itoa(id)}
	}
	return cohort, nil
}

type memoryActions MemoryStores

func (m *memoryActions) ByID(teamID int, id int) (*Action, error) {
	action, ok := m.Actions[id]
	if !ok || action.TeamID != teamID {
		return nil, &NotFoundError{Kind: "action", Key: strconv.Itoa(id)}
	}
	return action, nil
}

// ActionMap adapts a pre-fetched id-to-action lookup into an ActionStore.
// Team ownership is still checked so a map populated for one team cannot
// leak another team's action.
type ActionMap map[int]*Action

func (m ActionMap) ByID(teamID int, id int) (*Action, error) {
	action, ok := m[id]
	if !ok || action.TeamID != teamID {
		return nil, &NotFoundError{Kind: "action", Key: strconv.Itoa(id)}
	}
	return action, nil
}

type memoryDataWarehouse MemoryStores

func (m *memoryDataWarehouse) PersonsJoin(teamID int, fieldName string) (*DataWarehouseJoin, error) {
	for _, join := range m.Joins {
		if join.TeamID == teamID && join.SourceTableName == PersonsTable && join.FieldName == fieldName {
			return join, nil
		}
	}
	return nil, &NotFoundError{Kind: "join", Key: fieldName}
}

func (m *memoryDataWarehouse) TableColumns(teamID int, tableName string) (map[string]ColumnType, error) {
	if columns, ok := m.Tables[tableName]; ok {
		return columns, nil
	}
	return nil, &NotFoundError{Kind: "table or view", Key: tableName}
}
