// ABOUTME: Unit tests for placeholder variable extraction
// ABOUTME: Covers ordering, de-duplication, whitespace, and malformed tokens

package template

import (
	"reflect"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no placeholders",
			text: "plain text with no variables",
			want: nil,
		},
		{
			name: "single placeholder",
			text: "Summarize {{topic}} in one paragraph.",
			want: []string{"topic"},
		},
		{
			name: "duplicates collapse to first appearance",
			text: "{{tone}} intro about {{topic}}, closing in the same {{tone}}",
			want: []string{"tone", "topic"},
		},
		{
			name: "order is first appearance",
			text: "{{b}} {{a}} {{c}} {{a}}",
			want: []string{"b", "a", "c"},
		},
		{
			name: "inner whitespace tolerated",
			text: "Hello {{ name }}, welcome to {{place}}",
			want: []string{"name", "place"},
		},
		{
			name: "dots dashes underscores",
			text: "{{user.name}} {{max-len}} {{output_format}}",
			want: []string{"user.name", "max-len", "output_format"},
		},
		{
			name: "single braces ignored",
			text: "JSON uses {braces} but not as variables",
			want: nil,
		},
		{
			name: "unclosed placeholder ignored",
			text: "broken {{var and fine {{ok}}",
			want: []string{"ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractVariables(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractVariables() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	if got := CountWords("one two  three\nfour"); got != 4 {
		t.Errorf("CountWords() = %d, want 4", got)
	}
	if got := CountWords(""); got != 0 {
		t.Errorf("CountWords(empty) = %d, want 0", got)
	}
}

func TestCountChars(t *testing.T) {
	if got := CountChars("héllo"); got != 5 {
		t.Errorf("CountChars() = %d, want 5", got)
	}
}
