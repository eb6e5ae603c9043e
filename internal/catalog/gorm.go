package catalog

import (
	"errors"
	"strconv"

	"gorm.io/gorm"
)

// PersonsTable is the source table person-scoped warehouse joins hang off.
const PersonsTable = "persons"

// GormStores returns Stores backed by the given database session. The
// session's transaction and connection lifetime stay with the caller; the
// stores only issue reads through it.
func GormStores(db *gorm.DB) Stores {
	return Stores{
		PropertyDefinitions: &gormPropertyDefinitions{db: db},
		Cohorts:             &gormCohorts{db: db},
		Actions:             &gormActions{db: db},
		DataWarehouse:       &gormDataWarehouse{db: db},
	}
}

// AutoMigrate creates the catalog tables. Intended for tests and
// development setups; production schemas are owned by the ingestion side.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Team{},
		&PropertyDefinition{},
		&Cohort{},
		&Action{},
		&DataWarehouseJoin{},
		&DataWarehouseTable{},
		&DataWarehouseSavedQuery{},
	)
}

type gormPropertyDefinitions struct {
	db *gorm.DB
}

func (s *gormPropertyDefinitions) Find(teamID int, name string, kind PropertyKind, groupTypeIndex *int) (*PropertyDefinition, error) {
	query := s.db.Where("team_id = ? AND name = ? AND kind = ?", teamID, name, kind)
	if kind == PropertyKindGroup {
		if groupTypeIndex == nil {
			query = query.Where("group_type_index IS NULL")
		} else {
			query = query.Where("group_type_index = ?", *groupTypeIndex)
		}
	}

	var definition PropertyDefinition
	if err := query.First(&definition).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &definition, nil
}

type gormCohorts struct {
	db *gorm.DB
}

func (s *gormCohorts) ByID(teamID int, id int) (*Cohort, error) {
	var cohort Cohort
	err := s.db.Where("team_id = ? AND id = ?", teamID, id).First(&cohort).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "cohort", Key: strconv.Itoa(id)}
		}
		return nil, err
	}
	return &cohort, nil
}

type gormActions struct {
	db *gorm.DB
}

func (s *gormActions) ByID(teamID int, id int) (*Action, error) {
	var action Action
	err := s.db.Where("team_id = ? AND id = ?", teamID, id).First(&action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "action", Key: strconv.Itoa(id)}
		}
		return nil, err
	}
	return &action, nil
}

type gormDataWarehouse struct {
	db *gorm.DB
}

func (s *gormDataWarehouse) PersonsJoin(teamID int, fieldName string) (*DataWarehouseJoin, error) {
	var join DataWarehouseJoin
	err := s.db.Where("team_id = ? AND source_table_name = ? AND field_name = ?", teamID, PersonsTable, fieldName).
		First(&join).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "join", Key: fieldName}
		}
		return nil, err
	}
	return &join, nil
}

// TableColumns resolves the column types of a warehouse table or view.
// Saved queries (views) shadow tables of the same name.
func (s *gormDataWarehouse) TableColumns(teamID int, tableName string) (map[string]ColumnType, error) {
	var view DataWarehouseSavedQuery
	err := s.db.Where("team_id = ? AND name = ?", teamID, tableName).First(&view).Error
	if err == nil {
		return view.Columns, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var table DataWarehouseTable
	err = s.db.Where("team_id = ? AND name = ?", teamID, tableName).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "table or view", Key: tableName}
		}
		return nil, err
	}
	return table.Columns, nil
}
