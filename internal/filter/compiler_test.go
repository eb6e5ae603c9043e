package filter

import (
	"errors"
	"strings"
	"testing"

	"github.com/nlstn/go-propql/ast"
	"github.com/nlstn/go-propql/internal/catalog"
)

func newTestCompiler(t *testing.T) (*Compiler, *catalog.MemoryStores) {
	t.Helper()
	mem := catalog.NewMemoryStores()
	return &Compiler{
		Team:   &catalog.Team{ID: 1},
		Stores: mem.Stores(),
	}, mem
}

func mustSQL(t *testing.T, expr ast.Expr) string {
	t.Helper()
	sql, err := ast.Print(expr)
	if err != nil {
		t.Fatalf("Print failed: %v", err)
	}
	return sql
}

func compileSQL(t *testing.T, c *Compiler, input any, scope Scope) string {
	t.Helper()
	expr, err := c.PropertyToExpr(input, scope)
	if err != nil {
		t.Fatalf("PropertyToExpr failed: %v", err)
	}
	return mustSQL(t, expr)
}

func TestEmptyInputsCompileToTrue(t *testing.T) {
	c, _ := newTestCompiler(t)

	inputs := map[string]any{
		"nil":            nil,
		"empty map":      map[string]any{},
		"empty list":     []any{},
		"nil property":   (*Property)(nil),
		"nil group":      (*PropertyGroup)(nil),
		"group no items": PropertyGroup{Combinator: GroupAnd},
	}
	for name, input := range inputs {
		if got := compileSQL(t, c, input, ScopeEvent); got != "true" {
			t.Errorf("%s: expected true, got %q", name, got)
		}
	}
}

func TestRawMapDefaults(t *testing.T) {
	c, _ := newTestCompiler(t)

	// Type and operator omitted: event/exact is assumed.
	got := compileSQL(t, c, map[string]any{"key": "$browser", "value": "Chrome"}, ScopeEvent)
	want := "properties.`$browser` = 'Chrome'"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPersonPropertyInEventScope(t *testing.T) {
	c, _ := newTestCompiler(t)

	input := map[string]any{"type": "person", "key": "email", "operator": "icontains", "value": "@corp.com"}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "person.properties.email ILIKE '%@corp.com%'"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestListCompilesAsImplicitAnd(t *testing.T) {
	c, _ := newTestCompiler(t)

	input := []any{
		map[string]any{"key": "$browser", "value": "Chrome"},
		map[string]any{"key": "plan", "operator": "is_not", "value": "free"},
	}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "(properties.`$browser` = 'Chrome' AND properties.plan != 'free')"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTypedPropertySlice(t *testing.T) {
	c, _ := newTestCompiler(t)

	input := []Property{
		{Key: "$browser", Operator: OpExact, Type: TypeEvent, Value: "Chrome"},
		{Key: "$os", Operator: OpExact, Type: TypeEvent, Value: "Linux"},
	}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "(properties.`$browser` = 'Chrome' AND properties.`$os` = 'Linux')"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestGroupCombinators(t *testing.T) {
	c, _ := newTestCompiler(t)

	orGroup := map[string]any{
		"type": "OR",
		"values": []any{
			map[string]any{"key": "plan", "value": "pro"},
			map[string]any{"key": "plan", "value": "enterprise"},
		},
	}
	got := compileSQL(t, c, orGroup, ScopeEvent)
	want := "(properties.plan = 'pro' OR properties.plan = 'enterprise')"
	if got != want {
		t.Errorf("OR group: expected %q, got %q", want, got)
	}

	// A single-child group unwraps; no boolean node survives.
	single := map[string]any{
		"combinator": "AND",
		"values":     []any{map[string]any{"key": "plan", "value": "pro"}},
	}
	got = compileSQL(t, c, single, ScopeEvent)
	want = "properties.plan = 'pro'"
	if got != want {
		t.Errorf("single-child group: expected %q, got %q", want, got)
	}
}

func TestNestedGroups(t *testing.T) {
	c, _ := newTestCompiler(t)

	input := map[string]any{
		"type": "AND",
		"values": []any{
			map[string]any{
				"type": "OR",
				"values": []any{
					map[string]any{"key": "$browser", "value": "Chrome"},
					map[string]any{"key": "$browser", "value": "Firefox"},
				},
			},
			map[string]any{"key": "plan", "value": "pro"},
		},
	}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "((properties.`$browser` = 'Chrome' OR properties.`$browser` = 'Firefox') AND properties.plan = 'pro')"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMultiValueExpansion(t *testing.T) {
	c, _ := newTestCompiler(t)

	tests := []struct {
		name     string
		operator string
		want     string
	}{
		{
			name:     "positive operator ORs values",
			operator: "exact",
			want:     "(properties.`$browser` = 'Chrome' OR properties.`$browser` = 'Safari')",
		},
		{
			name:     "negative operator ANDs values",
			operator: "is_not",
			want:     "(properties.`$browser` != 'Chrome' AND properties.`$browser` != 'Safari')",
		},
		{
			name:     "negated regex ANDs values",
			operator: "not_regex",
			want:     "(ifNull(not(match(toString(properties.`$browser`), 'Chrome')), true) AND ifNull(not(match(toString(properties.`$browser`), 'Safari')), true))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := map[string]any{"key": "$browser", "operator": tt.operator, "value": []any{"Chrome", "Safari"}}
			if got := compileSQL(t, c, input, ScopeEvent); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSingleElementListUnwraps(t *testing.T) {
	c, _ := newTestCompiler(t)

	input := map[string]any{"key": "$browser", "value": []any{"Chrome"}}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "properties.`$browser` = 'Chrome'"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestEmptyValueListCompilesToTrue(t *testing.T) {
	c, _ := newTestCompiler(t)

	input := map[string]any{"key": "$browser", "value": []any{}}
	if got := compileSQL(t, c, input, ScopeEvent); got != "true" {
		t.Errorf("expected true, got %q", got)
	}
}

func TestIsSetOperators(t *testing.T) {
	c, _ := newTestCompiler(t)

	got := compileSQL(t, c, map[string]any{"key": "$browser", "operator": "is_set"}, ScopeEvent)
	want := "isNotNull(properties.`$browser`)"
	if got != want {
		t.Errorf("is_set: expected %q, got %q", want, got)
	}

	got = compileSQL(t, c, map[string]any{"key": "$browser", "operator": "is_not_set"}, ScopeEvent)
	want = "(isNull(properties.`$browser`) OR NOT (JSONHas(properties, '$browser')))"
	if got != want {
		t.Errorf("is_not_set: expected %q, got %q", want, got)
	}
}

func TestIsNotSetWithoutPropertiesRoot(t *testing.T) {
	c, _ := newTestCompiler(t)

	// Warehouse columns are real columns: there is no JSON root to probe.
	input := map[string]any{"type": "data_warehouse", "key": "usage_count", "operator": "is_not_set"}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "isNull(usage_count)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestIsNotSetOnPropertiesRoot(t *testing.T) {
	c, _ := newTestCompiler(t)

	// An empty key targets the properties root itself: there is no key to
	// probe with JSONHas, only the null check remains.
	got := compileSQL(t, c, Property{Type: TypeEvent, Key: "", Operator: OpIsNotSet}, ScopeEvent)
	want := "isNull(properties)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRegexAlwaysNullGuarded(t *testing.T) {
	c, _ := newTestCompiler(t)

	got := compileSQL(t, c, map[string]any{"key": "$current_url", "operator": "regex", "value": "^https://"}, ScopeEvent)
	want := "ifNull(match(toString(properties.`$current_url`), '^https://'), false)"
	if got != want {
		t.Errorf("regex: expected %q, got %q", want, got)
	}

	got = compileSQL(t, c, map[string]any{"key": "$current_url", "operator": "not_regex", "value": "^https://"}, ScopeEvent)
	want = "ifNull(not(match(toString(properties.`$current_url`), '^https://')), true)"
	if got != want {
		t.Errorf("not_regex: expected %q, got %q", want, got)
	}
}

func TestOrderingOperators(t *testing.T) {
	c, _ := newTestCompiler(t)

	tests := []struct {
		operator string
		want     string
	}{
		{"lt", "properties.count < 10"},
		{"lte", "properties.count <= 10"},
		{"gt", "properties.count > 10"},
		{"gte", "properties.count >= 10"},
		{"is_date_before", "properties.count < 10"},
		{"is_date_after", "properties.count > 10"},
	}
	for _, tt := range tests {
		input := map[string]any{"key": "count", "operator": tt.operator, "value": 10}
		if got := compileSQL(t, c, input, ScopeEvent); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.operator, tt.want, got)
		}
	}
}

func TestUnsupportedOperator(t *testing.T) {
	c, _ := newTestCompiler(t)

	_, err := c.PropertyToExpr(Property{Key: "count", Type: TypeEvent, Operator: OpMin, Value: 1}, ScopeEvent)
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	var notImpl *NotImplementedError
	if !errors.As(err, &notImpl) {
		t.Fatalf("expected *NotImplementedError, got %T", err)
	}
}

func TestScopeViolations(t *testing.T) {
	c, _ := newTestCompiler(t)

	tests := []struct {
		name  string
		input Property
	}{
		{"event property in person scope", Property{Type: TypeEvent, Key: "$browser", Operator: OpExact, Value: "x"}},
		{"session property in person scope", Property{Type: TypeSession, Key: "duration", Operator: OpGt, Value: 1}},
		{"element property in person scope", Property{Type: TypeElement, Key: "tag_name", Operator: OpExact, Value: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.PropertyToExpr(tt.input, ScopePerson)
			if !errors.Is(err, ErrNotImplemented) {
				t.Fatalf("expected ErrNotImplemented, got %v", err)
			}
		})
	}

	// Person properties are the one type allowed in person scope.
	got := compileSQL(t, c, Property{Type: TypePerson, Key: "email", Operator: OpExact, Value: "x"}, ScopePerson)
	want := "properties.email = 'x'"
	if got != want {
		t.Errorf("person property in person scope: expected %q, got %q", want, got)
	}
}

func TestSessionScopeViolations(t *testing.T) {
	c, _ := newTestCompiler(t)

	tests := []struct {
		name  string
		input Property
	}{
		{"person property in session scope", Property{Type: TypePerson, Key: "email", Operator: OpExact, Value: "x"}},
		{"event property in session scope", Property{Type: TypeEvent, Key: "$browser", Operator: OpExact, Value: "x"}},
		{"warehouse property in session scope", Property{Type: TypeDataWarehouse, Key: "usage_count", Operator: OpGt, Value: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.PropertyToExpr(tt.input, ScopeSession)
			if !errors.Is(err, ErrNotImplemented) {
				t.Fatalf("expected ErrNotImplemented, got %v", err)
			}
			if !strings.Contains(err.Error(), string(tt.input.Type)) || !strings.Contains(err.Error(), string(ScopeSession)) {
				t.Errorf("error should name the property type and the scope, got %q", err)
			}
		})
	}

	// Session properties resolve against the sessions table.
	got := compileSQL(t, c, Property{Type: TypeSession, Key: "duration", Operator: OpGt, Value: 30}, ScopeSession)
	want := "sessions.duration > 30"
	if got != want {
		t.Errorf("session property in session scope: expected %q, got %q", want, got)
	}
}

func TestBooleanStringCoercion(t *testing.T) {
	c, mem := newTestCompiler(t)
	mem.Definitions = append(mem.Definitions, &catalog.PropertyDefinition{
		TeamID:    1,
		Name:      "is_subscribed",
		Kind:      catalog.PropertyKindPerson,
		ValueType: catalog.PropertyValueBoolean,
	})

	input := map[string]any{"type": "person", "key": "is_subscribed", "value": "true"}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "person.properties.is_subscribed = true"
	if got != want {
		t.Errorf("declared boolean: expected %q, got %q", want, got)
	}

	// Without a declaration the string stays a string.
	input = map[string]any{"type": "person", "key": "beta_flag", "value": "true"}
	got = compileSQL(t, c, input, ScopeEvent)
	want = "person.properties.beta_flag = 'true'"
	if got != want {
		t.Errorf("undeclared: expected %q, got %q", want, got)
	}

	// Coercion only applies to equality operators.
	input = map[string]any{"type": "person", "key": "is_subscribed", "operator": "icontains", "value": "true"}
	got = compileSQL(t, c, input, ScopeEvent)
	want = "person.properties.is_subscribed ILIKE '%true%'"
	if got != want {
		t.Errorf("icontains: expected %q, got %q", want, got)
	}
}

func TestWarehousePersonBooleanCoercion(t *testing.T) {
	c, mem := newTestCompiler(t)
	mem.Joins = append(mem.Joins, &catalog.DataWarehouseJoin{
		TeamID:           1,
		SourceTableName:  catalog.PersonsTable,
		FieldName:        "supplements",
		JoiningTableName: "dw_supplements",
	})
	mem.Tables["dw_supplements"] = catalog.ColumnMap{"active": catalog.ColumnBoolean}

	input := map[string]any{"type": "data_warehouse_person_property", "key": "supplements: active", "value": "false"}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "person.supplements.active = false"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestWarehousePersonMissingJoinErrors(t *testing.T) {
	c, _ := newTestCompiler(t)

	input := map[string]any{"type": "data_warehouse_person_property", "key": "missing: active", "value": "true"}
	_, err := c.PropertyToExpr(input, ScopeEvent)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCohortFilter(t *testing.T) {
	c, mem := newTestCompiler(t)
	mem.Cohorts[7] = &catalog.Cohort{ID: 7, TeamID: 1, Name: "power users"}

	input := map[string]any{"type": "cohort", "key": "id", "value": 7}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "person_id IN COHORT 7"
	if got != want {
		t.Errorf("event scope: expected %q, got %q", want, got)
	}

	got = compileSQL(t, c, Property{Type: TypeCohort, Key: "id", Operator: OpExact, Value: 7}, ScopePerson)
	want = "id IN COHORT 7"
	if got != want {
		t.Errorf("person scope: expected %q, got %q", want, got)
	}

	input = map[string]any{"type": "cohort", "key": "id", "operator": "not_in", "value": "7"}
	got = compileSQL(t, c, input, ScopeEvent)
	want = "person_id NOT IN COHORT 7"
	if got != want {
		t.Errorf("not_in: expected %q, got %q", want, got)
	}
}

func TestCohortNotFoundPropagates(t *testing.T) {
	c, _ := newTestCompiler(t)

	_, err := c.PropertyToExpr(map[string]any{"type": "cohort", "key": "id", "value": 404}, ScopeEvent)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCohortFilterRejectsFractionalID(t *testing.T) {
	c, mem := newTestCompiler(t)
	mem.Cohorts[7] = &catalog.Cohort{ID: 7, TeamID: 1, Name: "power users"}

	_, err := c.PropertyToExpr(map[string]any{"type": "cohort", "key": "id", "value": 7.9}, ScopeEvent)
	if err == nil {
		t.Fatal("fractional cohort id should not compile")
	}

	// Whole-valued floats are fine: JSON numbers decode as float64.
	got := compileSQL(t, c, map[string]any{"type": "cohort", "key": "id", "value": 7.0}, ScopeEvent)
	want := "person_id IN COHORT 7"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestHogQLProperty(t *testing.T) {
	c, _ := newTestCompiler(t)

	input := Property{Type: TypeHogQL, Key: "properties.plan = 'pro' and event != '$pageview'"}
	got := compileSQL(t, c, input, ScopeEvent)
	want := "(properties.plan = 'pro' AND event != '$pageview')"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPrebuiltExpressionIsCloned(t *testing.T) {
	c, _ := newTestCompiler(t)

	original := &ast.Compare{
		Op:    ast.OpEq,
		Left:  &ast.Field{Chain: []string{"event"}},
		Right: &ast.Constant{Value: "$pageview"},
	}
	expr, err := c.PropertyToExpr(original, ScopeEvent)
	if err != nil {
		t.Fatalf("PropertyToExpr failed: %v", err)
	}
	if !ast.Equal(original, expr) {
		t.Fatal("clone should be structurally equal to the input")
	}
	if expr == ast.Expr(original) {
		t.Fatal("prebuilt input must be cloned, not returned as-is")
	}

	// Mutating the result must not touch the caller's tree.
	expr.(*ast.Compare).Right.(*ast.Constant).Value = "changed"
	if original.Right.(*ast.Constant).Value != "$pageview" {
		t.Fatal("mutating the clone leaked into the original")
	}
}

func TestMalformedFilterSoftFallback(t *testing.T) {
	var ignored []any
	c, _ := newTestCompiler(t)
	c.OnIgnored = func(input any, err error) {
		if err == nil {
			t.Error("OnIgnored called with nil error")
		}
		ignored = append(ignored, input)
	}

	inputs := []any{
		map[string]any{"kee": "$browser", "value": "Chrome"}, // unknown key
		map[string]any{"value": "Chrome"},                    // no key
		42, // not a filter shape at all
	}
	for _, input := range inputs {
		if got := compileSQL(t, c, input, ScopeEvent); got != "true" {
			t.Errorf("%v: expected true, got %q", input, got)
		}
	}
	if len(ignored) != len(inputs) {
		t.Fatalf("expected %d ignored callbacks, got %d", len(inputs), len(ignored))
	}
}

func TestTypedPropertyErrorsAreNotSwallowed(t *testing.T) {
	c, _ := newTestCompiler(t)

	// Soft fallback covers undecodable raw maps only; a well-formed filter
	// with bad semantics must fail loudly.
	called := false
	c.OnIgnored = func(any, error) { called = true }

	_, err := c.PropertyToExpr(Property{Type: "bogus", Key: "x", Operator: OpExact}, ScopeEvent)
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if called {
		t.Fatal("semantic errors must not trigger the ignored callback")
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	c, _ := newTestCompiler(t)

	input := map[string]any{
		"type": "OR",
		"values": []any{
			map[string]any{"key": "$browser", "operator": "is_not", "value": []any{"Chrome", "Safari"}},
			map[string]any{"key": "plan", "operator": "icontains", "value": "pro"},
		},
	}
	first, err := c.PropertyToExpr(input, ScopeEvent)
	if err != nil {
		t.Fatalf("first compile failed: %v", err)
	}
	second, err := c.PropertyToExpr(input, ScopeEvent)
	if err != nil {
		t.Fatalf("second compile failed: %v", err)
	}
	if !ast.Equal(first, second) {
		t.Fatal("compiling the same input twice produced different trees")
	}
	if ast.Fingerprint(first) != ast.Fingerprint(second) {
		t.Fatal("fingerprints of identical compiles differ")
	}
}

func TestGroupPropertyResolution(t *testing.T) {
	c, _ := newTestCompiler(t)

	idx := 2
	got := compileSQL(t, c, Property{Type: TypeGroup, Key: "tier", Operator: OpExact, Value: "gold", GroupTypeIndex: &idx}, ScopeEvent)
	want := "group_2.properties.tier = 'gold'"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	_, err := c.PropertyToExpr(Property{Type: TypeGroup, Key: "tier", Operator: OpExact, Value: "gold"}, ScopeEvent)
	if err == nil {
		t.Fatal("group property without group_type_index should fail")
	}
}
