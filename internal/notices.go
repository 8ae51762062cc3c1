package internal

import (
	"fmt"
	"io"
	"sync"
)

// Notices prints each keyed message at most once per invocation.
type Notices struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[string]bool
}

// NewNotices returns an empty notice state writing to w.
func NewNotices(w io.Writer) *Notices {
	return &Notices{w: w, seen: make(map[string]bool)}
}

// Once prints msg unless key was already shown. It reports whether the
// message was printed.
func (n *Notices) Once(key, msg string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seen[key] {
		return false
	}
	n.seen[key] = true
	fmt.Fprintln(n.w, msg)
	return true
}

// Legacy prints the deprecation notice for a renamed command.
func (n *Notices) Legacy(old, replacement string) bool {
	return n.Once("legacy:"+old, fmt.Sprintf("note: `drctl %s` is deprecated; use `drctl %s`", old, replacement))
}
