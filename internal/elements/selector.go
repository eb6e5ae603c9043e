// Package elements parses CSS-like selectors and renders them into
// regular expressions over the serialized elements chain of an
// autocaptured interaction. The chain encodes each DOM ancestor as
// `tag.class1.class2:attr="value"` segments joined by ";", so a selector
// turns into one regex matched against that string.
package elements

import (
	"regexp"
	"strings"
)

var attributeRegexp = regexp.MustCompile(`([a-zA-Z]*)\[(.*)=["|'](.*)["|']\]`)

// SelectorPart is one segment of a parsed selector, innermost first.
type SelectorPart struct {
	DirectDescendant bool
	// UniqueOrder counts earlier parts with identical match data, so
	// repeated segments like "div div" stay distinguishable.
	UniqueOrder int

	TagName  string
	Classes  []string
	NthChild string
	// Attributes holds the attribute matchers rendered into the chain
	// regex, including the special "attr_id" and "nth-child" keys.
	Attributes map[string]string
}

// Selector is a parsed CSS-like selector.
type Selector struct {
	Parts []SelectorPart
}

// ParseSelector parses a selector string. Parts are stored innermost
// first: for "main > button.primary" the button segment comes before the
// main segment. When unescapeClasses is set, backslash escapes inside
// class names are stripped; the elements-chain path parses with it off
// so the raw class text lands in the regex.
func ParseSelector(selector string, unescapeClasses bool) Selector {
	// A bare * adds nothing to the match, drop it.
	selector = strings.ReplaceAll(selector, "> *", ">")
	selector = strings.ReplaceAll(selector, "*> ", ">")
	selector = strings.ReplaceAll(selector, "* > ", ">")

	tags := splitSelector(selector)
	for i, j := 0, len(tags)-1; i < j; i, j = i+1, j-1 {
		tags[i], tags[j] = tags[j], tags[i]
	}

	var sel Selector
	for index, tag := range tags {
		if tag == ">" || tag == "" {
			continue
		}
		part := parsePart(tag, index > 0 && tags[index-1] == ">", unescapeClasses)
		for _, prev := range sel.Parts {
			if sameMatchData(prev, part) {
				part.UniqueOrder++
			}
		}
		sel.Parts = append(sel.Parts, part)
	}
	return sel
}

// splitSelector splits on spaces that are outside attribute brackets.
func splitSelector(selector string) []string {
	var parts []string
	var current strings.Builder
	inAttribute := false
	var quote rune

	for _, ch := range selector {
		if ch == '[' && quote == 0 {
			inAttribute = true
		}
		if ch == ']' && quote == 0 {
			inAttribute = false
		}
		if ch == '"' || ch == '\'' {
			if quote == ch {
				quote = 0
			} else if quote == 0 {
				quote = ch
			}
		}

		if ch == ' ' && !inAttribute {
			parts = append(parts, current.String())
			current.Reset()
		} else {
			current.WriteRune(ch)
		}
	}
	parts = append(parts, current.String())
	return parts
}

func parsePart(tag string, directDescendant, unescapeClasses bool) SelectorPart {
	part := SelectorPart{
		DirectDescendant: directDescendant,
		Attributes:       make(map[string]string),
	}

	match := attributeRegexp.FindStringSubmatch(tag)
	if match != nil && strings.Contains(tag, "[id=") {
		part.Attributes["attr_id"] = strings.Trim(match[3], `"`)
		tag = match[1]
	}
	if match != nil && strings.Contains(tag, "[") {
		part.Attributes[match[2]] = match[3]
		tag = match[1]
	}
	if strings.Contains(tag, ":nth-child(") {
		pieces := strings.SplitN(tag, ":nth-child(", 2)
		part.NthChild = strings.ReplaceAll(pieces[1], ")", "")
		part.Attributes["nth-child"] = part.NthChild
		tag = pieces[0]
	}
	if strings.Contains(tag, ".") {
		pieces := strings.Split(tag, ".")
		classes := pieces[1:]
		if unescapeClasses {
			for i, class := range classes {
				classes[i] = unescapeClass(class)
			}
		}
		part.Classes = classes
		tag = pieces[0]
	}
	part.TagName = tag
	return part
}

// unescapeClass collapses escape sequences: doubled backslashes become one
// literal backslash, single backslashes are dropped.
func unescapeClass(class string) string {
	pieces := strings.Split(class, `\\`)
	for i, piece := range pieces {
		pieces[i] = strings.ReplaceAll(piece, `\`, "")
	}
	return strings.Join(pieces, `\`)
}

func sameMatchData(a, b SelectorPart) bool {
	if a.TagName != b.TagName || a.NthChild != b.NthChild {
		return false
	}
	if len(a.Classes) != len(b.Classes) || len(a.Attributes) != len(b.Attributes) {
		return false
	}
	for i := range a.Classes {
		if a.Classes[i] != b.Classes[i] {
			return false
		}
	}
	for key, value := range a.Attributes {
		if b.Attributes[key] != value {
			return false
		}
	}
	return true
}
