package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("DRCTL_TEST_A", "alpha")
	got := ExpandEnv("${DRCTL_TEST_A}/$DRCTL_TEST_A/${DRCTL_TEST_UNSET_X}end")
	if got != "alpha/alpha/end" {
		t.Errorf("ExpandEnv = %q", got)
	}
}

func TestResolvePath_Relative(t *testing.T) {
	base := t.TempDir()
	got := ResolvePath("./sub/dir", base)
	want := filepath.Join(base, "sub", "dir")
	if got != want {
		t.Errorf("ResolvePath = %q, want %q", got, want)
	}
}

func TestResolvePath_Absolute(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(base, "a", "..", "b")
	got := ResolvePath(abs, "/elsewhere")
	if got != filepath.Join(base, "b") {
		t.Errorf("ResolvePath = %q", got)
	}
}

func TestResolvePath_HomeAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DRCTL_TEST_SUB", "records")

	if got := ResolvePath("~", "/tmp"); got != home {
		t.Errorf("~ = %q, want %q", got, home)
	}
	got := ResolvePath("~/$DRCTL_TEST_SUB", "/tmp")
	if got != filepath.Join(home, "records") {
		t.Errorf("~/$VAR = %q", got)
	}
}

func TestLooksLikePath(t *testing.T) {
	cases := map[string]bool{
		"work":         false,
		"":             false,
		"./work":       true,
		"../work":      true,
		".hidden":      true,
		"~/decisions":  true,
		"a/b":          true,
		`a\b`:          true,
		"C:":           true,
		"D:decisions":  true,
		"team-records": false,
	}
	for in, want := range cases {
		if got := LooksLikePath(in); got != want {
			t.Errorf("LooksLikePath(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSelectFallbackRoot(t *testing.T) {
	home := t.TempDir()
	cwd := t.TempDir()
	t.Setenv("HOME", home)

	root, src := SelectFallbackRoot(cwd)
	if root != filepath.Join(cwd, FallbackDirName) || src != SourceFallbackCwd {
		t.Errorf("no dirs: got %q %q", root, src)
	}

	if err := os.Mkdir(filepath.Join(home, FallbackDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	root, src = SelectFallbackRoot(cwd)
	if root != filepath.Join(home, FallbackDirName) || src != SourceFallbackHome {
		t.Errorf("home dir: got %q %q", root, src)
	}

	if err := os.Mkdir(filepath.Join(cwd, FallbackDirName), 0o755); err != nil {
		t.Fatal(err)
	}
	root, src = SelectFallbackRoot(cwd)
	if root != filepath.Join(cwd, FallbackDirName) || src != SourceFallbackCwd {
		t.Errorf("cwd dir: got %q %q", root, src)
	}
}

func TestIsWithin(t *testing.T) {
	base := t.TempDir()
	if !IsWithin(base, filepath.Join(base, "templates", "a.md")) {
		t.Error("expected nested path to be within base")
	}
	if IsWithin(base, filepath.Dir(base)) {
		t.Error("parent should not be within base")
	}
}
