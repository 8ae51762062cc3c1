package parser

import (
	"errors"
	"testing"
)

type meta struct {
	ID      string `yaml:"id"`
	Version string `yaml:"version"`
}

func TestEncodeDecode(t *testing.T) {
	body := "# Decision\n\nWe chose X.\n"
	data, err := Encode(meta{ID: "DR--20260101--meta--x", Version: "1.0"}, body)
	if err != nil {
		t.Fatal(err)
	}
	var got meta
	gotBody, err := Decode(data, &got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != "DR--20260101--meta--x" || got.Version != "1.0" {
		t.Errorf("meta = %+v", got)
	}
	if gotBody != body {
		t.Errorf("body = %q, want %q", gotBody, body)
	}
	if Body(data) != body {
		t.Errorf("Body = %q", Body(data))
	}
}

func TestDecode_Errors(t *testing.T) {
	var m meta
	if _, err := Decode([]byte("plain text"), &m); !errors.Is(err, ErrNoFrontmatter) {
		t.Errorf("expected ErrNoFrontmatter, got %v", err)
	}
	if _, err := Decode([]byte("---\nid: [unclosed\n---\n"), &m); err == nil {
		t.Error("expected yaml error")
	}
}

func TestTitle(t *testing.T) {
	if got := Title("some text\n  # My Heading \nmore\n# Second\n"); got != "My Heading" {
		t.Errorf("title = %q, want %q", got, "My Heading")
	}
	if got := Title("## Only h2\n#hashtag\n"); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
}

func TestBody_KeepsLeadingBlankLines(t *testing.T) {
	body := "\n\nindented start\n"
	data, err := Encode(meta{ID: "DR--20260101--meta--x"}, body)
	if err != nil {
		t.Fatal(err)
	}
	var got meta
	gotBody, err := Decode(data, &got)
	if err != nil {
		t.Fatal(err)
	}
	if gotBody != body {
		t.Errorf("body = %q, want %q", gotBody, body)
	}
}

func TestBody_HandWrittenSeparators(t *testing.T) {
	cases := map[string]string{
		"---\nid: x\n---\n# H\n":       "# H\n",
		"---\nid: x\n---\n\n# H\n":     "# H\n",
		"---\r\nid: x\r\n---\r\n\r\n# H": "# H",
		"---\nid: x\n---":              "",
	}
	for in, want := range cases {
		if got := Body([]byte(in)); got != want {
			t.Errorf("Body(%q) = %q, want %q", in, got, want)
		}
	}
}
