package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "lecture", want: "lecture"},
		{in: "  Q&A: part 1/2  ", want: "Q&A- part 1-2"},
		{in: "what's [new]?", want: "whats (new)"},
		{in: "a\t\tb", want: "a b"},
		{in: "..hidden", want: "hidden"},
		{in: "???", want: "video"},
		{in: "", want: "video"},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in, "video"); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
