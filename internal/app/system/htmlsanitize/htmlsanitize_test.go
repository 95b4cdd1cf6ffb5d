package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/fellowship/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Hello, World!", "Hello, World!"},
		{"trims", "  hi there \n", "hi there"},
		{"strips tags", "<p><strong>Bold</strong> text</p>", "Bold text"},
		{"drops script", "Hi<script>alert('xss')</script>", "Hi"},
		{"keeps newlines", "Line 1\nLine 2", "Line 1\nLine 2"},
		{"unescapes ampersand", "A & B", "A & B"},
		{"keeps comparison", "5 < 10", "5 < 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Hello", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>Hello</p>", false},
	}
	for _, tt := range tests {
		if got := htmlsanitize.IsPlainText(tt.in); got != tt.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
