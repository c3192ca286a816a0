package textutil

import "testing"

func TestPrintable(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"notes.txt", "notes.txt"},
		{"bad\x1b[31m\npath", "bad?[31m path"},
		{"a\t\t b", "a b"},
		{"left\u202eright", "left·right"},
		{"soft\u00adhyphen", "soft·hyphen"},
	}
	for _, c := range cases {
		if got := Printable(c.in); got != c.want {
			t.Fatalf("Printable(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestExpandTabs(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"a\tb", 4, "a   b"},
		{"abcd\tx", 4, "abcd    x"},
		{"ab\n\tc", 4, "ab\n    c"},
		{"世\tx", 4, "世  x"},
		{"no tabs", 4, "no tabs"},
		{"a\tb", 0, "a\tb"},
	}
	for _, c := range cases {
		if got := ExpandTabs(c.in, c.width); got != c.want {
			t.Fatalf("ExpandTabs(%q, %d)=%q want %q", c.in, c.width, got, c.want)
		}
	}
}
