package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	models "lectern/internal/domain/models/resource"
)

func TestFormatRecord(t *testing.T) {
	size := int64(1536)
	assert.Equal(t, "Slides/", formatRecord(models.ResourceRecord{Name: "Slides", Kind: models.KindFolder}))
	assert.True(t, strings.HasSuffix(formatRecord(models.ResourceRecord{Name: "a.pdf", Kind: models.KindFile, Size: &size}), "1.5 KiB"))
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	printTree(&buf, []*models.TreeNode{{
		ResourceRecord: models.ResourceRecord{Name: "Week 1", Kind: models.KindFolder},
		Children: []*models.TreeNode{{
			ResourceRecord: models.ResourceRecord{Name: "Slides", Kind: models.KindFolder},
		}},
	}}, "")

	assert.Equal(t, "Week 1/\n  Slides/\n", buf.String())
}

func TestPrintCascade(t *testing.T) {
	var buf bytes.Buffer
	err := printCascade(&buf, &models.CascadeResult{
		Operation: "move",
		Root:      models.PathChange{From: "A", To: "B/A"},
		Applied:   []models.PathChange{{From: "A", To: "B/A"}},
		Failed:    []models.CascadeFailure{{Path: "A/x.pdf", Error: "timeout"}},
	})

	assert.Error(t, err)
	assert.Contains(t, buf.String(), "A -> B/A")
	assert.Contains(t, buf.String(), "! A/x.pdf: timeout")
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	p.update(models.Progress{UploadedBytes: 512, TotalBytes: 1024})
	p.update(models.Progress{UploadedBytes: 1024, TotalBytes: 1024, Done: true})

	assert.Contains(t, buf.String(), "512 B / 1.0 KiB ( 50%)")
	assert.True(t, strings.HasSuffix(buf.String(), "(100%)\n"))
}
