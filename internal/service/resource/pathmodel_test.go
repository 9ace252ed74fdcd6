package resource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already normal", in: "A/B/c.txt", want: "A/B/c.txt"},
		{name: "leading and trailing slashes", in: "/A/B/", want: "A/B"},
		{name: "backslashes", in: `A\B\c.txt`, want: "A/B/c.txt"},
		{name: "mixed separators", in: `\A/B\`, want: "A/B"},
		{name: "empty segments", in: "A//B///c", want: "A/B/c"},
		{name: "only slashes", in: "///", want: ""},
		{name: "empty", in: "", want: ""},
		{name: "spaces kept", in: " Week 1 /notes.pdf", want: " Week 1 /notes.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"", "/", "//a", `a\\b`, "a/./b", "a/../b", `\/\/x/\y/`, "α/β//γ/", "trailing/"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
		assert.False(t, strings.HasPrefix(once, "/"))
		assert.False(t, strings.HasSuffix(once, "/"))
		assert.NotContains(t, once, "//")
	}
}

func TestParentOf(t *testing.T) {
	assert.Equal(t, "", ParentOf("L1.pdf"))
	assert.Equal(t, "W1", ParentOf("W1/L1.pdf"))
	assert.Equal(t, "A/B", ParentOf("/A/B/c.txt/"))
	assert.Equal(t, "", ParentOf(""))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "c.txt", BaseName("A/B/c.txt"))
	assert.Equal(t, "A", BaseName("A"))
	assert.Equal(t, "", BaseName(""))
}

func TestIsDirectChild(t *testing.T) {
	assert.True(t, IsDirectChild("A", ""))
	assert.True(t, IsDirectChild("A/B", "A"))
	assert.True(t, IsDirectChild("A/B", "/A/"))
	assert.False(t, IsDirectChild("A/B/c", "A"))
	assert.False(t, IsDirectChild("AB/c", "A"))
	assert.False(t, IsDirectChild("", ""))
}

func TestIsDescendant(t *testing.T) {
	assert.True(t, IsDescendant("W-One/L1.pdf", "W-One"))
	assert.True(t, IsDescendant("W-One/a/b", "W-One"))
	assert.False(t, IsDescendant("W-One", "W-One"))
	assert.False(t, IsDescendant("W-One-Other/x", "W-One"))
	assert.True(t, IsDescendant("anything", ""))
	assert.False(t, IsDescendant("", ""))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "c.txt", Join("", "c.txt"))
	assert.Equal(t, "A/B/c.txt", Join("A/B", "c.txt"))
}

func TestAncestorChain(t *testing.T) {
	assert.Equal(t, []string{"A", "A/B"}, AncestorChain("A/B/c.txt"))
	assert.Empty(t, AncestorChain("c.txt"))
	assert.Empty(t, AncestorChain(""))
	assert.Equal(t, []string{"A"}, AncestorChain("/A//b/"))
}

func TestRebasePath(t *testing.T) {
	assert.Equal(t, "W-One", RebasePath("W1", "W1", "W-One"))
	assert.Equal(t, "W-One/L1.pdf", RebasePath("W1/L1.pdf", "W1", "W-One"))
	assert.Equal(t, "L1.pdf", RebasePath("W-One/L1.pdf", "W-One/L1.pdf", "L1.pdf"))
	assert.Equal(t, "Archive/W1/x/y", RebasePath("W1/x/y", "W1", "Archive/W1"))
}

func TestValidateName(t *testing.T) {
	valid := []string{"notes.pdf", "Week 1", "ünïcødé", strings.Repeat("a", 255)}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), "name %q", name)
	}

	invalid := []string{"", "   ", "a/b", `a\b`, ".", "..", strings.Repeat("a", 256), "\xff"}
	for _, name := range invalid {
		assert.Error(t, ValidateName(name), "name %q", name)
	}
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("A/B/c.txt"))
	assert.Error(t, ValidatePath(""))
	assert.Error(t, ValidatePath("A/../c"))
	assert.Error(t, ValidatePath("A/ /c"))
	assert.Error(t, ValidatePath(strings.Repeat("abcdefghi/", 100)+"x"))
}
