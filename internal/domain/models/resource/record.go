package resource

import "time"

// Kind distinguishes leaf files from folders
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Valid reports whether k is a known kind
func (k Kind) Valid() bool {
	return k == KindFile || k == KindFolder
}

// ResourceRecord is one row of the flat, path-keyed resource table.
// (CourseID, Path) is unique. Folders carry no Size/URL/MimeType/ObjectKey.
type ResourceRecord struct {
	ID        string    `json:"id" db:"id"`
	CourseID  string    `json:"course_id" db:"course_id"`
	Path      string    `json:"path" db:"path"` // "Week 1/Slides/intro.pdf", no leading/trailing slash
	Name      string    `json:"name" db:"name"` // Always the last segment of Path
	Kind      Kind      `json:"kind" db:"kind"`
	Size      *int64    `json:"size" db:"size"`
	URL       *string   `json:"url" db:"url"`
	MimeType  *string   `json:"mime_type" db:"mime_type"`
	ObjectKey *string   `json:"object_key,omitempty" db:"object_key"` // Blob key, fixed at upload time
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (r *ResourceRecord) IsFolder() bool { return r.Kind == KindFolder }
func (r *ResourceRecord) IsFile() bool   { return r.Kind == KindFile }

// ResourcePatch rewrites a record's location. Name must equal the last segment of Path.
type ResourcePatch struct {
	Path string
	Name string
}

// UpsertMode selects what happens when (CourseID, Path) already exists
type UpsertMode int

const (
	// UpsertReplace overwrites the existing row's file attributes.
	UpsertReplace UpsertMode = iota
	// UpsertIgnore leaves the existing row untouched (insert-or-no-op).
	UpsertIgnore
)

// Preview is what a client needs to render or download a file
type Preview struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}
