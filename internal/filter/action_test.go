package filter

import (
	"errors"
	"testing"

	"github.com/nlstn/go-propql/ast"
	"github.com/nlstn/go-propql/internal/catalog"
	"github.com/nlstn/go-propql/internal/elements"
)

func strPtr(s string) *string { return &s }

func matchPtr(m catalog.StringMatching) *catalog.StringMatching { return &m }

func TestActionToExprEmpty(t *testing.T) {
	c, _ := newTestCompiler(t)

	expr, err := c.ActionToExpr(nil)
	if err != nil {
		t.Fatalf("nil action: %v", err)
	}
	if got := mustSQL(t, expr); got != "true" {
		t.Errorf("nil action: expected true, got %q", got)
	}

	expr, err = c.ActionToExpr(&catalog.Action{ID: 1, TeamID: 1})
	if err != nil {
		t.Fatalf("stepless action: %v", err)
	}
	if got := mustSQL(t, expr); got != "true" {
		t.Errorf("stepless action: expected true, got %q", got)
	}
}

func TestActionStepsAreAlternatives(t *testing.T) {
	c, _ := newTestCompiler(t)

	action := &catalog.Action{
		ID:     1,
		TeamID: 1,
		Steps: catalog.ActionSteps{
			{Event: strPtr("signup")},
			{Event: strPtr("purchase")},
		},
	}
	expr, err := c.ActionToExpr(action)
	if err != nil {
		t.Fatalf("ActionToExpr failed: %v", err)
	}
	want := "(event = 'signup' OR event = 'purchase')"
	if got := mustSQL(t, expr); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAutocaptureStepMatchers(t *testing.T) {
	c, _ := newTestCompiler(t)

	tests := []struct {
		name string
		step catalog.ActionStep
		want string
	}{
		{
			name: "tag name matches at segment boundary",
			step: catalog.ActionStep{Event: strPtr(AutocaptureEvent), TagName: strPtr("a")},
			want: `(event = '$autocapture' AND match(elements_chain, '(^|;)a(\\.|$|;|:)'))`,
		},
		{
			name: "href defaults to exact",
			step: catalog.ActionStep{Event: strPtr(AutocaptureEvent), Href: strPtr("/signup")},
			want: `(event = '$autocapture' AND match(elements_chain, '(href="/signup")'))`,
		},
		{
			name: "text contains is case insensitive",
			step: catalog.ActionStep{
				Event:        strPtr(AutocaptureEvent),
				Text:         strPtr("Sign up"),
				TextMatching: matchPtr(catalog.MatchContains),
			},
			want: `(event = '$autocapture' AND match(elements_chain, '(?i)(text="[^"]*Sign up[^"]*")'))`,
		},
		{
			name: "href regex uses the raw pattern",
			step: catalog.ActionStep{
				Event:        strPtr(AutocaptureEvent),
				Href:         strPtr("^/docs/.*"),
				HrefMatching: matchPtr(catalog.MatchRegex),
			},
			want: `(event = '$autocapture' AND match(elements_chain, '(href="^/docs/.*")'))`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := c.StepToExpr(tt.step)
			if err != nil {
				t.Fatalf("StepToExpr failed: %v", err)
			}
			if got := mustSQL(t, expr); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestElementMatchersIgnoredOutsideAutocapture(t *testing.T) {
	c, _ := newTestCompiler(t)

	step := catalog.ActionStep{Event: strPtr("$pageview"), TagName: strPtr("a"), Href: strPtr("/x")}
	expr, err := c.StepToExpr(step)
	if err != nil {
		t.Fatalf("StepToExpr failed: %v", err)
	}
	if got := mustSQL(t, expr); got != "event = '$pageview'" {
		t.Errorf("expected only the event match, got %q", got)
	}
}

func TestStepURLMatching(t *testing.T) {
	c, _ := newTestCompiler(t)

	tests := []struct {
		name     string
		matching *catalog.StringMatching
		want     string
	}{
		{
			name: "default is contains",
			want: "properties.`$current_url` LIKE '%/pricing%'",
		},
		{
			name:     "exact",
			matching: matchPtr(catalog.MatchExact),
			want:     "properties.`$current_url` = '/pricing'",
		},
		{
			name:     "regex",
			matching: matchPtr(catalog.MatchRegex),
			want:     "match(properties.`$current_url`, '/pricing')",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := catalog.ActionStep{URL: strPtr("/pricing"), URLMatching: tt.matching}
			expr, err := c.StepToExpr(step)
			if err != nil {
				t.Fatalf("StepToExpr failed: %v", err)
			}
			if got := mustSQL(t, expr); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStepNestedProperties(t *testing.T) {
	c, _ := newTestCompiler(t)

	step := catalog.ActionStep{
		Event:      strPtr("purchase"),
		Properties: []any{map[string]any{"key": "plan", "value": "pro"}},
	}
	expr, err := c.StepToExpr(step)
	if err != nil {
		t.Fatalf("StepToExpr failed: %v", err)
	}
	want := "(event = 'purchase' AND properties.plan = 'pro')"
	if got := mustSQL(t, expr); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSelectorMatcherUsesElementsRegex(t *testing.T) {
	c, _ := newTestCompiler(t)

	pattern := elements.BuildRegex(elements.ParseSelector("a.primary", false))
	wantExpr := &ast.Compare{
		Op:    ast.OpRegex,
		Left:  &ast.Field{Chain: []string{"elements_chain"}},
		Right: &ast.Constant{Value: pattern},
	}

	expr, err := c.elementMatcher("selector", OpExact, "a.primary")
	if err != nil {
		t.Fatalf("elementMatcher failed: %v", err)
	}
	if !ast.Equal(expr, wantExpr) {
		t.Errorf("selector matcher does not use the elements regex\nwant %#v\ngot  %#v", wantExpr, expr)
	}

	negated, err := c.elementMatcher("selector", OpIsNot, "a.primary")
	if err != nil {
		t.Fatalf("negated elementMatcher failed: %v", err)
	}
	call, ok := negated.(*ast.Call)
	if !ok || call.Name != "not" {
		t.Errorf("negated selector should wrap in not(), got %#v", negated)
	}
}

func TestElementPropertyLists(t *testing.T) {
	c, _ := newTestCompiler(t)

	prop := Property{Type: TypeElement, Key: "tag_name", Operator: OpExact, Value: []any{"a", "button"}}
	got := compileSQL(t, c, prop, ScopeEvent)
	want := `(match(elements_chain, '(^|;)a(\\.|$|;|:)') OR match(elements_chain, '(^|;)button(\\.|$|;|:)'))`
	if got != want {
		t.Errorf("exact list: expected %q, got %q", want, got)
	}

	prop.Operator = OpIsNot
	got = compileSQL(t, c, prop, ScopeEvent)
	want = `(not(match(elements_chain, '(^|;)a(\\.|$|;|:)')) AND not(match(elements_chain, '(^|;)button(\\.|$|;|:)')))`
	if got != want {
		t.Errorf("negated list: expected %q, got %q", want, got)
	}
}

func TestElementChainKeyFilterPatterns(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		operator    Operator
		text        string
		wantPattern string
		wantNegated bool
	}{
		{
			name: "is_set matches any value",
			key:  "href", operator: OpIsSet,
			wantPattern: `(href="[^"]+")`,
		},
		{
			name: "is_not_set negates the any-value match",
			key:  "href", operator: OpIsNotSet,
			wantPattern: `(href="[^"]+")`, wantNegated: true,
		},
		{
			name: "exact escapes regex metacharacters",
			key:  "href", operator: OpExact, text: "/docs/a+b",
			wantPattern: `(href="/docs/a\+b")`,
		},
		{
			name: "embedded quotes are escaped",
			key:  "text", operator: OpExact, text: `say "hi"`,
			wantPattern: `(text="say \\"hi\\"")`,
		},
		{
			name: "regex passes the pattern through",
			key:  "href", operator: OpRegex, text: "^/docs/.*",
			wantPattern: `(href="^/docs/.*")`,
		},
		{
			name: "not_regex negates",
			key:  "href", operator: OpNotRegex, text: "^/docs/.*",
			wantPattern: `(href="^/docs/.*")`, wantNegated: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := elementChainKeyFilter(tt.key, tt.operator, tt.text)
			if err != nil {
				t.Fatalf("elementChainKeyFilter failed: %v", err)
			}
			if tt.wantNegated {
				call, ok := expr.(*ast.Call)
				if !ok || call.Name != "not" {
					t.Fatalf("expected a not() wrapper, got %#v", expr)
				}
				expr = call.Args[0]
			}
			cmp, ok := expr.(*ast.Compare)
			if !ok {
				t.Fatalf("expected a comparison, got %#v", expr)
			}
			if got := cmp.Right.(*ast.Constant).Value; got != tt.wantPattern {
				t.Errorf("pattern: expected %q, got %v", tt.wantPattern, got)
			}
		})
	}
}

func TestElementChainKeyFilterRejectsOrderingOperators(t *testing.T) {
	if _, err := elementChainKeyFilter("href", OpGt, "x"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestElementMatcherUnknownKey(t *testing.T) {
	c, _ := newTestCompiler(t)
	if _, err := c.elementMatcher("width", OpExact, "10"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestEntityToExpr(t *testing.T) {
	c, mem := newTestCompiler(t)
	mem.Actions[5] = &catalog.Action{
		ID: 5, TeamID: 1,
		Steps: catalog.ActionSteps{{Event: strPtr("signup")}},
	}

	expr, err := c.EntityToExpr(Entity{Kind: EntityEvent})
	if err != nil {
		t.Fatalf("all-events entity: %v", err)
	}
	if got := mustSQL(t, expr); got != "true" {
		t.Errorf("all-events entity: expected true, got %q", got)
	}

	expr, err = c.EntityToExpr(Entity{Kind: EntityEvent, Event: strPtr("$pageview")})
	if err != nil {
		t.Fatalf("event entity: %v", err)
	}
	if got := mustSQL(t, expr); got != "event = '$pageview'" {
		t.Errorf("event entity: got %q", got)
	}

	expr, err = c.EntityToExpr(Entity{Kind: EntityAction, ActionID: 5})
	if err != nil {
		t.Fatalf("action entity: %v", err)
	}
	if got := mustSQL(t, expr); got != "event = 'signup'" {
		t.Errorf("action entity: got %q", got)
	}
}

func TestMissingActionCompilesToNoRows(t *testing.T) {
	c, _ := newTestCompiler(t)

	expr, err := c.EntityToExpr(Entity{Kind: EntityAction, ActionID: 404})
	if err != nil {
		t.Fatalf("missing action must not error: %v", err)
	}
	if got := mustSQL(t, expr); got != "1 = 2" {
		t.Errorf("expected 1 = 2, got %q", got)
	}
}

func TestActionEntityWithoutStoreErrors(t *testing.T) {
	c := &Compiler{Team: &catalog.Team{ID: 1}}
	if _, err := c.EntityToExpr(Entity{Kind: EntityAction, ActionID: 5}); err == nil {
		t.Fatal("expected a configuration error without an action store")
	}
}

func TestTestAccountFiltersExpr(t *testing.T) {
	c, _ := newTestCompiler(t)
	c.Team.TestAccountFilters = catalog.JSONList{
		map[string]any{"type": "person", "key": "email", "operator": "not_icontains", "value": "@internal.test"},
	}

	expr, err := c.TestAccountFiltersExpr(ScopeEvent)
	if err != nil {
		t.Fatalf("TestAccountFiltersExpr failed: %v", err)
	}
	want := "person.properties.email NOT ILIKE '%@internal.test%'"
	if got := mustSQL(t, expr); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	c.Team.TestAccountFilters = nil
	expr, err = c.TestAccountFiltersExpr(ScopeEvent)
	if err != nil {
		t.Fatalf("empty filters failed: %v", err)
	}
	if got := mustSQL(t, expr); got != "true" {
		t.Errorf("empty filters: expected true, got %q", got)
	}
}

func TestMatchingOperator(t *testing.T) {
	if op := matchingOperator(nil); op != OpExact {
		t.Errorf("nil matching: expected exact, got %q", op)
	}
	if op := matchingOperator(matchPtr(catalog.MatchContains)); op != OpIContains {
		t.Errorf("contains: expected icontains, got %q", op)
	}
	if op := matchingOperator(matchPtr(catalog.MatchRegex)); op != OpRegex {
		t.Errorf("regex: expected regex, got %q", op)
	}
}
