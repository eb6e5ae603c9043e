package filter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/nlstn/go-propql/ast"
)

// inputKind tags the normalized shape of a filter input.
type inputKind int

const (
	inputEmpty inputKind = iota
	inputPrebuilt
	inputTyped
	inputGroup
	inputList
	inputMalformed
)

// propertyInput is the tagged union produced by normalizeInput. The shape
// of a filter is decided exactly once at the entry boundary; downstream
// code switches on kind and never re-inspects the raw value.
type propertyInput struct {
	kind  inputKind
	expr  ast.Expr
	prop  Property
	group PropertyGroup
	list  []any
	err   error
}

// normalizeInput classifies an arbitrary filter input. Raw maps decode
// strictly: unknown keys or shape mismatches yield inputMalformed, which
// the compiler collapses to the constant true (legacy filters must never
// fail a whole query).
func normalizeInput(input any) propertyInput {
	switch v := input.(type) {
	case nil:
		return propertyInput{kind: inputEmpty}
	case ast.Expr:
		return propertyInput{kind: inputPrebuilt, expr: v}
	case Property:
		return propertyInput{kind: inputTyped, prop: v}
	case *Property:
		if v == nil {
			return propertyInput{kind: inputEmpty}
		}
		return propertyInput{kind: inputTyped, prop: *v}
	case PropertyGroup:
		return propertyInput{kind: inputGroup, group: v}
	case *PropertyGroup:
		if v == nil {
			return propertyInput{kind: inputEmpty}
		}
		return propertyInput{kind: inputGroup, group: *v}
	case map[string]any:
		return normalizeMap(v)
	}

	if list, ok := toAnyList(input); ok {
		return propertyInput{kind: inputList, list: list}
	}
	return propertyInput{kind: inputMalformed, err: fmt.Errorf("unsupported filter input type %T", input)}
}

// normalizeMap decodes a raw map into a property or, when it carries a
// "values" key, a property group.
func normalizeMap(m map[string]any) propertyInput {
	if len(m) == 0 {
		return propertyInput{kind: inputEmpty}
	}
	if _, ok := m["values"]; ok {
		group, err := decodeGroup(m)
		if err != nil {
			return propertyInput{kind: inputMalformed, err: err}
		}
		return propertyInput{kind: inputGroup, group: group}
	}
	prop, err := decodeProperty(m)
	if err != nil {
		return propertyInput{kind: inputMalformed, err: err}
	}
	return propertyInput{kind: inputTyped, prop: prop}
}

// decodeProperty decodes a single-filter map. Decoding is strict about
// unknown keys; type defaults to event and operator to exact, matching how
// stored filters omit them.
func decodeProperty(m map[string]any) (Property, error) {
	var prop Property
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &prop,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Property{}, err
	}
	if err := decoder.Decode(m); err != nil {
		return Property{}, err
	}
	if prop.Key == "" {
		return Property{}, fmt.Errorf("property filter has no key")
	}
	if prop.Type == "" {
		prop.Type = TypeEvent
	}
	if prop.Operator == "" {
		prop.Operator = OpExact
	}
	return prop, nil
}

// decodeGroup decodes a filter-group map. The combinator historically
// lives under "type"; newer payloads use "combinator".
func decodeGroup(m map[string]any) (PropertyGroup, error) {
	combinator, ok := m["combinator"].(string)
	if !ok {
		combinator, _ = m["type"].(string)
	}
	var group PropertyGroup
	switch GroupCombinator(strings.ToUpper(combinator)) {
	case GroupAnd:
		group.Combinator = GroupAnd
	case GroupOr:
		group.Combinator = GroupOr
	default:
		return PropertyGroup{}, fmt.Errorf("unknown group combinator %q", combinator)
	}
	values, ok := toAnyList(m["values"])
	if !ok {
		return PropertyGroup{}, fmt.Errorf("group values is not a list")
	}
	group.Values = values
	return group, nil
}

// toAnyList converts any slice (except byte slices) into []any.
func toAnyList(value any) ([]any, bool) {
	if list, ok := value.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
