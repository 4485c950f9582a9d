package parse

import (
	"regexp"
	"strings"

	"github.com/ohler55/ojg/oj"
	"github.com/ohler55/ojg/sen"
)

// Strategy extracts a candidate object from raw model output
type Strategy struct {
	Name    string
	Extract func(text string) []any
}

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// DefaultStrategies are tried in this order, the first valid candidate wins
var DefaultStrategies = []Strategy{
	{Name: "direct", Extract: direct},
	{Name: "fenced", Extract: fenced},
	{Name: "brace-span", Extract: braceSpans},
	{Name: "relaxed", Extract: relaxed},
}

// direct parses the whole text as strict JSON
func direct(text string) []any {
	if v, err := oj.ParseString(strings.TrimSpace(text)); err == nil {
		return []any{v}
	}
	return nil
}

// fenced parses the content of markdown code blocks
func fenced(text string) []any {
	ret := []any{}
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if v, err := oj.ParseString(strings.TrimSpace(m[1])); err == nil {
			ret = append(ret, v)
		}
	}
	return ret
}

// braceSpans parses every balanced {...} span in order of appearance
func braceSpans(text string) []any {
	ret := []any{}
	for _, span := range findObjects(text) {
		if v, err := oj.ParseString(span); err == nil {
			ret = append(ret, v)
		}
	}
	return ret
}

// relaxed accepts the SEN dialect (unquoted keys, trailing commas, comments)
// on the balanced spans
func relaxed(text string) []any {
	ret := []any{}
	for _, span := range findObjects(text) {
		if v, err := sen.Parse([]byte(span)); err == nil {
			ret = append(ret, v)
		}
	}
	return ret
}

// findObjects returns the top level balanced {...} spans of text.
// Braces inside string literals are ignored.
func findObjects(text string) []string {
	ret := []string{}
	depth := 0
	start := -1
	inString := false
	var quote byte
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			if depth > 0 {
				inString = true
				quote = c
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				ret = append(ret, text[start:i+1])
			}
		}
	}
	return ret
}
