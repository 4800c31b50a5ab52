// ABOUTME: Placeholder variable extraction for prompt content
// ABOUTME: Finds {{name}} tokens, de-duplicated in first-appearance order

package template

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// placeholderRegex matches {{name}} tokens. Names may contain letters,
// digits, underscores, dots and dashes; surrounding whitespace inside the
// braces is tolerated ({{ name }}).
var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// ExtractVariables returns the distinct placeholder names found in text,
// ordered by first appearance.
func ExtractVariables(text string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	vars := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		vars = append(vars, name)
	}
	return vars
}

// CountWords returns the whitespace-delimited word count of text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountChars returns the number of runes in text.
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}
