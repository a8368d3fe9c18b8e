package literal

import "testing"

func TestUnquote(t *testing.T) {
	cases := []struct{ in, want string }{
		{`hello`, "hello"},
		{`a\nb`, "a\nb"},
		{`\t\\\"`, "\t\\\""},
		{`\x41`, "A"},
		{`é`, "é"},
	}
	for _, c := range cases {
		got, err := Unquote(c.in)
		if err != nil {
			t.Fatalf("Unquote(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Unquote(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestUnquoteErrors(t *testing.T) {
	for _, in := range []string{`\`, `\q`, `\x4`} {
		if _, err := Unquote(in); err == nil {
			t.Fatalf("Unquote(%q): expected error", in)
		}
	}
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"1_000", 1000},
		{"0x2A", 42},
		{"0o52", 42},
		{"052", 42},
	}
	for _, c := range cases {
		got, err := ParseInt(c.in)
		if err != nil {
			t.Fatalf("ParseInt(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseInt(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseFloat(t *testing.T) {
	got, err := ParseFloat("1_234.5e2")
	if err != nil {
		t.Fatal(err)
	}
	if got != 123450 {
		t.Fatalf("got %v, want 123450", got)
	}
}
