package filter

import (
	"fmt"
	"strings"

	"github.com/nlstn/go-propql/internal/catalog"
)

// coerceBooleanString converts the string literals "true" and "false" into
// real booleans when the property's declared type is boolean. Equality
// against a boolean column would otherwise compare against a string and
// never match. Only equality operators reach this path.
func (c *Compiler) coerceBooleanString(prop Property, value any) (any, error) {
	s, ok := value.(string)
	if !ok || (s != "true" && s != "false") {
		return value, nil
	}
	isBoolean, err := c.propertyIsBoolean(prop)
	if err != nil {
		return nil, err
	}
	if !isBoolean {
		return value, nil
	}
	return s == "true", nil
}

// propertyIsBoolean consults the property-definition catalog, or for
// data-warehouse person properties the join and table/view column types.
// A missing definition simply disables coercion; a missing join or table
// is a hard error the caller must see.
func (c *Compiler) propertyIsBoolean(prop Property) (bool, error) {
	var kind catalog.PropertyKind
	switch prop.Type {
	case TypePerson:
		kind = catalog.PropertyKindPerson
	case TypeGroup:
		kind = catalog.PropertyKindGroup
	case TypeEvent, TypeFeature:
		kind = catalog.PropertyKindEvent
	case TypeSession:
		kind = catalog.PropertyKindSession
	case TypeDataWarehousePerson:
		return c.warehousePersonColumnIsBoolean(prop.Key)
	default:
		return false, nil
	}

	if c.Stores.PropertyDefinitions == nil {
		return false, nil
	}
	definition, err := c.Stores.PropertyDefinitions.Find(c.Team.ID, prop.Key, kind, prop.GroupTypeIndex)
	if err != nil {
		return false, err
	}
	return definition != nil && definition.ValueType == catalog.PropertyValueBoolean, nil
}

func (c *Compiler) warehousePersonColumnIsBoolean(key string) (bool, error) {
	table, column, found := strings.Cut(key, warehouseKeySeparator)
	if !found {
		return false, nil
	}
	if c.Stores.DataWarehouse == nil {
		return false, fmt.Errorf("data warehouse person property %q requires a data warehouse store", key)
	}
	join, err := c.Stores.DataWarehouse.PersonsJoin(c.Team.ID, table)
	if err != nil {
		return false, err
	}
	columns, err := c.Stores.DataWarehouse.TableColumns(c.Team.ID, join.JoiningTableName)
	if err != nil {
		return false, err
	}
	return columns[column] == catalog.ColumnBoolean, nil
}
