// Package pathutil expands and resolves user-supplied paths.
package pathutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Source tags for a fallback root.
const (
	SourceFallbackCwd  = "fallback-cwd"
	SourceFallbackHome = "fallback-home"
)

// FallbackDirName is the directory used when nothing is configured.
const FallbackDirName = "decisions"

var (
	envRe   = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)
	driveRe = regexp.MustCompile(`^[A-Za-z]:`)
)

// HomeDir returns the user's home directory, or "" when it cannot be
// determined.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// ExpandEnv replaces ${VAR} and $VAR references. Unset variables expand to "".
func ExpandEnv(input string) string {
	return envRe.ReplaceAllStringFunc(input, func(m string) string {
		sub := envRe.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		return os.Getenv(name)
	})
}

// ExpandHome replaces a leading "~" or "~/" with the home directory.
func ExpandHome(input string) string {
	if input == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(input, "~/") || strings.HasPrefix(input, `~\`) {
		return filepath.Join(HomeDir(), input[2:])
	}
	return input
}

// ResolvePath expands environment references and "~", normalises separators
// and returns an absolute path. Relative inputs are joined to baseDir.
func ResolvePath(input, baseDir string) string {
	expanded := ExpandHome(ExpandEnv(strings.TrimSpace(input)))
	expanded = filepath.FromSlash(strings.ReplaceAll(expanded, `\`, "/"))
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded)
	}
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	abs, err := filepath.Abs(filepath.Join(baseDir, expanded))
	if err != nil {
		return filepath.Join(baseDir, expanded)
	}
	return abs
}

// LooksLikePath reports whether input reads as a directory rather than a
// repository alias.
func LooksLikePath(input string) bool {
	if input == "" {
		return false
	}
	if strings.ContainsAny(input, `/\`) {
		return true
	}
	if strings.HasPrefix(input, ".") || strings.HasPrefix(input, "~") {
		return true
	}
	return driveRe.MatchString(input)
}

// SelectFallbackRoot picks <cwd>/decisions, then ~/decisions, then the cwd
// variant again when neither exists.
func SelectFallbackRoot(cwd string) (root, source string) {
	cwdCandidate := filepath.Join(cwd, FallbackDirName)
	if isDir(cwdCandidate) {
		return cwdCandidate, SourceFallbackCwd
	}
	if home := HomeDir(); home != "" {
		homeCandidate := filepath.Join(home, FallbackDirName)
		if isDir(homeCandidate) {
			return homeCandidate, SourceFallbackHome
		}
	}
	return cwdCandidate, SourceFallbackCwd
}

// ToSlashRel returns target relative to base in forward-slash form, or the
// slash form of target when it is not under base.
func ToSlashRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// IsWithin reports whether target is base or lies below it.
func IsWithin(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
