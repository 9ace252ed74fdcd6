package resource

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"lectern/internal/config"
)

// pathmodel.go - Path algebra for the path-keyed resource table.
//
// A path is relative to the course root, uses "/" as the only separator,
// and has no leading, trailing or empty segments once normalized. The
// course root itself is the empty path "". Parent/child relationships are
// derived from path shape alone; no record stores a parent pointer.

// Normalize converts backslashes to slashes and drops leading, trailing and
// empty segments.
//
// Examples:
//   - Normalize("/A/B/") → "A/B"
//   - Normalize(`A\B\c.txt`) → "A/B/c.txt"
//   - Normalize("A//B") → "A/B"
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.Contains(p, "//") {
		return strings.Trim(p, "/")
	}
	segments := strings.Split(p, "/")
	kept := segments[:0]
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "/")
}

// ParentOf returns the parent path, or "" for a root-level path.
func ParentOf(p string) string {
	p = Normalize(p)
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// BaseName returns the final segment of a path.
func BaseName(p string) string {
	p = Normalize(p)
	return p[strings.LastIndex(p, "/")+1:]
}

// IsDirectChild reports whether p sits immediately under parent.
func IsDirectChild(p, parent string) bool {
	return Normalize(p) != "" && ParentOf(p) == Normalize(parent)
}

// IsDescendant reports whether p lies strictly below ancestor. The comparison
// is against ancestor + "/", so "W-One-Other/x" is not below "W-One".
func IsDescendant(p, ancestor string) bool {
	p, ancestor = Normalize(p), Normalize(ancestor)
	if ancestor == "" {
		return p != ""
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// Join appends a segment to a parent path.
func Join(parent, segment string) string {
	if parent == "" {
		return segment
	}
	return parent + "/" + segment
}

// AncestorChain returns every proper non-empty ancestor of p, top-down.
//
// Example: AncestorChain("A/B/c.txt") → ["A", "A/B"]
func AncestorChain(p string) []string {
	p = Normalize(p)
	var chain []string
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			chain = append(chain, p[:i])
		}
	}
	return chain
}

// RebasePath swaps the oldRoot prefix of p for newRoot, keeping the remainder.
// p must be oldRoot itself or a descendant of it.
func RebasePath(p, oldRoot, newRoot string) string {
	if p == oldRoot {
		return newRoot
	}
	return Join(newRoot, strings.TrimPrefix(p, oldRoot+"/"))
}

// ValidateName checks a single path segment.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name %q cannot contain slashes", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("name %q is reserved", name)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("name must be valid UTF-8")
	}
	if len(name) > config.MaxResourceNameLength {
		return fmt.Errorf("name exceeds maximum length of %d", config.MaxResourceNameLength)
	}
	return nil
}

// ValidatePath checks a normalized, non-root path segment by segment.
func ValidatePath(p string) error {
	if p == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if len(p) > config.MaxResourcePathLength {
		return fmt.Errorf("path exceeds maximum length of %d", config.MaxResourcePathLength)
	}
	for _, segment := range strings.Split(p, "/") {
		if err := ValidateName(segment); err != nil {
			return err
		}
	}
	return nil
}
