package elements

import (
	"regexp"
	"sort"
	"strings"
)

// partBoundary closes one chain segment: the remainder of the segment's
// text, then either end-of-chain, a ";" separator, or an attribute block.
const partBoundary = `([-_a-zA-Z0-9\.:"= \[\]\(\),]*?)?($|;|:([^;^\s]*(;|$|\s)))`

// BuildRegex renders a parsed selector into a single regular expression
// over the serialized elements chain. Classes and attributes are sorted
// so the same selector always yields the same pattern regardless of
// declaration order.
func BuildRegex(selector Selector) string {
	var sb strings.Builder
	for _, part := range selector.Parts {
		if part.TagName != "" {
			if part.TagName == "*" {
				sb.WriteString(".+")
			} else {
				sb.WriteString(regexp.QuoteMeta(part.TagName))
			}
		}
		if len(part.Classes) > 0 {
			classes := make([]string, len(part.Classes))
			for i, class := range part.Classes {
				classes[i] = regexp.QuoteMeta(class)
			}
			sort.Strings(classes)
			for _, class := range classes {
				sb.WriteString(`.*?\.`)
				sb.WriteString(class)
			}
		}
		if len(part.Attributes) > 0 {
			sb.WriteString(".*?")
			keys := make([]string, 0, len(part.Attributes))
			for key := range part.Attributes {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				sb.WriteString(regexp.QuoteMeta(key))
				sb.WriteString(`="`)
				sb.WriteString(regexp.QuoteMeta(part.Attributes[key]))
				sb.WriteString(`".*?`)
			}
		}
		sb.WriteString(partBoundary)
		if part.DirectDescendant {
			sb.WriteString(".*")
		}
	}
	return sb.String()
}
