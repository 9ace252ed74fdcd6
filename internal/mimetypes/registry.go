package mimetypes

import (
	"bytes"
	"embed"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Fallback is used when nothing else identifies a file
const Fallback = "application/octet-stream"

// tableFile is the on-disk shape of a YAML type table
type tableFile struct {
	Types map[string]string `yaml:"types"`
}

// Registry resolves content types from file extensions
type Registry struct {
	types map[string]string
	mu    sync.RWMutex
}

// NewRegistry creates a registry and loads the embedded course table
func NewRegistry() (*Registry, error) {
	r := &Registry{
		types: make(map[string]string),
	}

	if err := r.loadTableFile("course"); err != nil {
		return nil, fmt.Errorf("failed to load course types: %w", err)
	}

	return r, nil
}

// loadTableFile loads an embedded type table
func (r *Registry) loadTableFile(name string) error {
	filename := fmt.Sprintf("config/%s.yaml", name)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var table tableFile
	if err := yaml.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	for ext, typ := range table.Types {
		r.types[strings.ToLower(ext)] = typ
	}
	r.mu.Unlock()

	return nil
}

// Register adds or replaces an extension mapping
func (r *Registry) Register(ext, contentType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[strings.ToLower(ext)] = contentType
}

// Lookup returns the table entry for name's extension
func (r *Registry) Lookup(name string) (string, bool) {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	typ, ok := r.types[ext]
	return typ, ok
}

// Resolve picks a content type for a file. Order: the declared type, the
// table, the platform MIME database, content sniffing of head, Fallback.
// head may be nil.
func (r *Registry) Resolve(name, declared string, head []byte) string {
	if declared != "" && declared != Fallback {
		return declared
	}
	if typ, ok := r.Lookup(name); ok {
		return typ
	}
	if typ := mime.TypeByExtension(path.Ext(name)); typ != "" {
		return typ
	}
	if len(bytes.TrimSpace(head)) > 0 {
		if typ := http.DetectContentType(head); typ != Fallback {
			return typ
		}
	}
	return Fallback
}
