package mimetypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_LoadsEmbeddedTable(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	typ, ok := r.Lookup("Lecture 01.PPTX")
	require.True(t, ok)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.presentationml.presentation", typ)

	_, ok = r.Lookup("Makefile")
	assert.False(t, ok)
}

func TestRegistry_Resolve(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	tests := []struct {
		name     string
		file     string
		declared string
		head     []byte
		want     string
	}{
		{name: "declared wins", file: "a.pdf", declared: "application/x-custom", want: "application/x-custom"},
		{name: "octet-stream declared falls through", file: "a.pdf", declared: "application/octet-stream", want: "application/pdf"},
		{name: "table", file: "notes.md", want: "text/markdown"},
		{name: "sniffed", file: "README", head: []byte("%PDF-1.7\n"), want: "application/pdf"},
		{name: "fallback", file: "blob", want: Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.file, tt.declared, tt.head))
		})
	}
}

func TestRegistry_Register(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	r.Register(".SYLLABUS", "text/x-syllabus")
	typ, ok := r.Lookup("course.syllabus")
	require.True(t, ok)
	assert.Equal(t, "text/x-syllabus", typ)
}
