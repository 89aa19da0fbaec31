package textutil

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "report.csv", want: "report.csv"},
		{name: "unicode", in: "zdjęcia 写真", want: "zdjęcia 写真"},
		{name: "escape sequence", in: "evil\x1b[2Jname", want: "evil?[2Jname"},
		{name: "newline and tab", in: "two\nlines\tand tab", want: "two lines and tab"},
		{name: "delete and c1", in: "a\x7fb\u009bc", want: "a?b?c"},
		{name: "bidi override", in: "invoice\u202etxt.exe", want: "invoice⟪RLO⟫txt.exe"},
		{name: "zero width", in: "pay\u200bpal", want: "pay⟪ZWSP⟫pal"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SafeName(tt.in); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			if NeedsEscaping(tt.in) != (tt.in != tt.want) {
				t.Fatalf("NeedsEscaping(%q) disagrees with SafeName", tt.in)
			}
		})
	}
}

func TestSafeNameNeverEmitsControls(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		in := rapid.String().Draw(t, "name")
		out := SafeName(in)
		for _, r := range out {
			if isControl(r) || r == '\t' {
				t.Fatalf("control rune %U survived in %q", r, out)
			}
		}
	})
}

func TestWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"写真", 4},
		{"e\u0301", 2},
	}
	for _, tt := range tests {
		if got := Width(tt.in); got != tt.want {
			t.Fatalf("Width(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
		left string
	}{
		{in: "short", max: 10, want: "short", left: "short"},
		{in: "exactly", max: 7, want: "exactly", left: "exactly"},
		{in: "directory", max: 5, want: "dire…", left: "…tory"},
		{in: "写真写真", max: 4, want: "写…", left: "…真"},
		{in: "abc", max: 1, want: "…", left: "…"},
		{in: "abc", max: 0, want: "", left: ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Fatalf("Truncate(%q, %d): expected %q, got %q", tt.in, tt.max, tt.want, got)
		}
		if got := TruncateLeft(tt.in, tt.max); got != tt.left {
			t.Fatalf("TruncateLeft(%q, %d): expected %q, got %q", tt.in, tt.max, tt.left, got)
		}
	}
}

func TestTruncateFits(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		in := rapid.StringMatching(`[a-z写真 ]{0,40}`).Draw(t, "text")
		max := rapid.IntRange(1, 50).Draw(t, "max")
		if got := Truncate(in, max); Width(got) > max {
			t.Fatalf("Truncate(%q, %d) = %q is %d cells", in, max, got, Width(got))
		}
		if got := TruncateLeft(in, max); Width(got) > max {
			t.Fatalf("TruncateLeft(%q, %d) = %q is %d cells", in, max, got, Width(got))
		}
	})
}

func TestPadRight(t *testing.T) {
	t.Parallel()

	if got := PadRight("写", 4); got != "写  " {
		t.Fatalf("expected two spaces of padding, got %q", got)
	}
	if got := PadRight("long text", 3); got != "long text" {
		t.Fatalf("expected text unchanged, got %q", got)
	}
	if strings.Count(PadRight("", 3), " ") != 3 {
		t.Fatalf("expected three spaces")
	}
}
