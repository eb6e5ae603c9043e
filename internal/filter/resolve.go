package filter

import (
	"fmt"
	"strings"
)

// warehouseKeySeparator splits a data-warehouse person property key into
// its joined-table alias and column name, e.g. "supplements: name".
const warehouseKeySeparator = ": "

// resolveChain maps a property's declared type and the active scope to the
// column chain the comparison compiles against, together with the
// (possibly rewritten) key appended as the final chain element. Rules are
// ordered; the first match wins.
func resolveChain(ptype PropertyType, scope Scope, groupTypeIndex *int, key string) (chain []string, newKey string, err error) {
	switch {
	case ptype == TypePerson && scope != ScopePerson:
		return []string{"person", "properties"}, key, nil
	case ptype == TypeEvent && scope == ScopeReplayEntity:
		return []string{"events", "properties"}, key, nil
	case ptype == TypeSession && scope == ScopeReplayEntity:
		return []string{"events", "session"}, key, nil
	case ptype == TypeDataWarehousePerson:
		table, column, found := strings.Cut(key, warehouseKeySeparator)
		if !found {
			return nil, "", fmt.Errorf("data warehouse person property key %q has no %q separator", key, warehouseKeySeparator)
		}
		return []string{"person", table}, column, nil
	case ptype == TypeGroup:
		if groupTypeIndex == nil {
			return nil, "", fmt.Errorf("group property %q has no group_type_index", key)
		}
		return []string{fmt.Sprintf("group_%d", *groupTypeIndex), "properties"}, key, nil
	case ptype == TypeDataWarehouse:
		return nil, key, nil
	case ptype == TypeSession && (scope == ScopeEvent || scope == ScopeReplay):
		return []string{"session"}, key, nil
	case ptype == TypeSession && scope == ScopeSession:
		return []string{"sessions"}, key, nil
	}
	return []string{"properties"}, key, nil
}
