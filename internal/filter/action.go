package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/nlstn/go-propql/ast"
	"github.com/nlstn/go-propql/internal/catalog"
	"github.com/nlstn/go-propql/internal/elements"
)

// AutocaptureEvent is the sentinel event name under which element matchers
// (selector, tag name, href, text) apply.
const AutocaptureEvent = "$autocapture"

// currentURLProperty is the event property action URL matchers compare
// against.
const currentURLProperty = "$current_url"

// ActionToExpr compiles an action into an OR over its steps. An action
// with no steps matches everything.
func (c *Compiler) ActionToExpr(action *catalog.Action) (ast.Expr, error) {
	if action == nil || len(action.Steps) == 0 {
		return &ast.Constant{Value: true}, nil
	}
	stepExprs := make([]ast.Expr, len(action.Steps))
	for i, step := range action.Steps {
		expr, err := c.StepToExpr(step)
		if err != nil {
			return nil, fmt.Errorf("action %d step %d: %w", action.ID, i, err)
		}
		stepExprs[i] = expr
	}
	return ast.NewOr(stepExprs...), nil
}

// StepToExpr compiles one action step: the AND of its event-name match,
// element matchers (autocapture only), URL match, and nested property
// filters. A step with no conditions matches everything.
func (c *Compiler) StepToExpr(step catalog.ActionStep) (ast.Expr, error) {
	var exprs []ast.Expr

	if step.Event != nil {
		exprs = append(exprs, &ast.Compare{
			Op:    ast.OpEq,
			Left:  &ast.Field{Chain: []string{"event"}},
			Right: &ast.Constant{Value: *step.Event},
		})
	}

	if step.Event != nil && *step.Event == AutocaptureEvent {
		if step.Selector != nil && *step.Selector != "" {
			exprs = append(exprs, selectorExpr(*step.Selector, false))
		}
		if step.TagName != nil && *step.TagName != "" {
			exprs = append(exprs, tagNameExpr(*step.TagName, false))
		}
		if step.Href != nil && *step.Href != "" {
			expr, err := elementChainKeyFilter("href", matchingOperator(step.HrefMatching), *step.Href)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
		}
		if step.Text != nil && *step.Text != "" {
			expr, err := elementChainKeyFilter("text", matchingOperator(step.TextMatching), *step.Text)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
		}
	}

	if step.URL != nil && *step.URL != "" {
		urlField := &ast.Field{Chain: []string{"properties", currentURLProperty}}
		matching := catalog.MatchContains
		if step.URLMatching != nil {
			matching = *step.URLMatching
		}
		switch matching {
		case catalog.MatchExact:
			exprs = append(exprs, &ast.Compare{Op: ast.OpEq, Left: urlField, Right: &ast.Constant{Value: *step.URL}})
		case catalog.MatchRegex:
			exprs = append(exprs, &ast.Compare{Op: ast.OpRegex, Left: urlField, Right: &ast.Constant{Value: *step.URL}})
		default:
			exprs = append(exprs, &ast.Compare{Op: ast.OpLike, Left: urlField, Right: &ast.Constant{Value: "%" + *step.URL + "%"}})
		}
	}

	if len(step.Properties) > 0 {
		expr, err := c.PropertyToExpr(step.Properties, ScopeEvent)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}

	return ast.NewAnd(exprs...), nil
}

// EntityToExpr compiles a query entity. An event entity with no name
// matches all events. An action entity whose action no longer exists
// compiles to 1 = 2: the query stays valid and returns no rows instead of
// failing.
func (c *Compiler) EntityToExpr(entity Entity) (ast.Expr, error) {
	switch entity.Kind {
	case EntityEvent:
		if entity.Event == nil {
			return &ast.Constant{Value: true}, nil
		}
		return &ast.Compare{
			Op:    ast.OpEq,
			Left:  &ast.Field{Chain: []string{"event"}},
			Right: &ast.Constant{Value: *entity.Event},
		}, nil
	case EntityAction:
		if c.Stores.Actions == nil {
			return nil, fmt.Errorf("action entity requires an action store")
		}
		action, err := c.Stores.Actions.ByID(c.Team.ID, entity.ActionID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return &ast.Compare{Op: ast.OpEq, Left: &ast.Constant{Value: 1}, Right: &ast.Constant{Value: 2}}, nil
			}
			return nil, err
		}
		return c.ActionToExpr(action)
	}
	return nil, notImplementedf("entity kind %q", entity.Kind)
}

// TestAccountFiltersExpr compiles the team's stored test-account filters
// as an implicit AND. A team with none compiles to true.
func (c *Compiler) TestAccountFiltersExpr(scope Scope) (ast.Expr, error) {
	if c.Team == nil || len(c.Team.TestAccountFilters) == 0 {
		return &ast.Constant{Value: true}, nil
	}
	return c.compileList(c.Team.TestAccountFilters, scope)
}

// compileElement compiles element-typed property filters: selector and
// tag_name matchers, plus href/text via the elements-chain key filter.
// List values expand like regular comparisons, with De Morgan's flip for
// negated operators.
func (c *Compiler) compileElement(prop Property) (ast.Expr, error) {
	values, ok := toAnyList(prop.Value)
	if !ok {
		values = []any{prop.Value}
	}
	if len(values) == 0 {
		return &ast.Constant{Value: true}, nil
	}
	exprs := make([]ast.Expr, len(values))
	for i, value := range values {
		expr, err := c.elementMatcher(prop.Key, prop.Operator, value)
		if err != nil {
			return nil, err
		}
		exprs[i] = expr
	}
	if negativeOperator(prop.Operator) {
		return ast.NewAnd(exprs...), nil
	}
	return ast.NewOr(exprs...), nil
}

func (c *Compiler) elementMatcher(key string, operator Operator, value any) (ast.Expr, error) {
	var text string
	if value != nil {
		text = stringValue(value)
	}
	switch key {
	case "selector":
		switch operator {
		case OpExact:
			return selectorExpr(text, false), nil
		case OpIsNot:
			return selectorExpr(text, true), nil
		}
		return nil, notImplementedf("operator %q on element selector", operator)
	case "tag_name":
		switch operator {
		case OpExact:
			return tagNameExpr(text, false), nil
		case OpIsNot:
			return tagNameExpr(text, true), nil
		}
		return nil, notImplementedf("operator %q on element tag_name", operator)
	case "href", "text":
		return elementChainKeyFilter(key, operator, text)
	}
	return nil, notImplementedf("element property %q", key)
}

func elementsChainField() *ast.Field {
	return &ast.Field{Chain: []string{"elements_chain"}}
}

// selectorExpr compiles a CSS-like selector into a regex match over the
// elements chain.
func selectorExpr(selector string, negated bool) ast.Expr {
	pattern := elements.BuildRegex(elements.ParseSelector(selector, false))
	expr := ast.Expr(&ast.Compare{Op: ast.OpRegex, Left: elementsChainField(), Right: &ast.Constant{Value: pattern}})
	if negated {
		expr = &ast.Call{Name: "not", Args: []ast.Expr{expr}}
	}
	return expr
}

// tagNameExpr matches a tag at a chain-segment boundary: the segment
// starts the chain or follows ";", and the tag ends at a class, attribute
// block, separator, or end of chain.
func tagNameExpr(tag string, negated bool) ast.Expr {
	pattern := `(^|;)` + tag + `(\.|$|;|:)`
	expr := ast.Expr(&ast.Compare{Op: ast.OpRegex, Left: elementsChainField(), Right: &ast.Constant{Value: pattern}})
	if negated {
		expr = &ast.Call{Name: "not", Args: []ast.Expr{expr}}
	}
	return expr
}

// elementChainKeyFilter matches `(key="value")` inside the serialized
// elements chain. The value pattern depends on the operator: any text for
// is_set/is_not_set, a wildcarded escape for icontains, the raw pattern
// for regex, and a full escape for exact. Negated operators wrap the
// match in not().
func elementChainKeyFilter(key string, operator Operator, text string) (ast.Expr, error) {
	escaped := strings.ReplaceAll(text, `"`, `\"`)
	var value string
	switch operator {
	case OpIsSet, OpIsNotSet:
		value = `[^"]+`
	case OpIContains, OpNotIContains:
		value = `[^"]*` + regexp.QuoteMeta(escaped) + `[^"]*`
	case OpRegex, OpNotRegex:
		value = escaped
	case OpExact, OpIsNot:
		value = regexp.QuoteMeta(escaped)
	default:
		return nil, notImplementedf("operator %q on element key %q", operator, key)
	}
	pattern := `(` + key + `="` + value + `")`

	op := ast.OpRegex
	if operator == OpIContains || operator == OpNotIContains {
		op = ast.OpIRegex
	}
	expr := ast.Expr(&ast.Compare{Op: op, Left: elementsChainField(), Right: &ast.Constant{Value: pattern}})
	switch operator {
	case OpIsNot, OpIsNotSet, OpNotIContains, OpNotRegex:
		expr = &ast.Call{Name: "not", Args: []ast.Expr{expr}}
	}
	return expr, nil
}

// matchingOperator maps an action step's string-matching mode to the
// equivalent property operator.
func matchingOperator(matching *catalog.StringMatching) Operator {
	if matching == nil {
		return OpExact
	}
	switch *matching {
	case catalog.MatchContains:
		return OpIContains
	case catalog.MatchRegex:
		return OpRegex
	default:
		return OpExact
	}
}
