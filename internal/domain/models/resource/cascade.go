package resource

// PathChange describes one record's move. To is empty for deletions.
type PathChange struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

// CascadeFailure is one descendant (or blob) a cascade could not update
type CascadeFailure struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// CascadeResult reports a non-atomic multi-record operation.
// The root change is always applied first; a non-empty Failed means the
// tree holds a mix of old and new paths and callers should re-fetch.
type CascadeResult struct {
	Operation string           `json:"operation"` // "rename", "move" or "delete"
	CourseID  string           `json:"course_id"`
	Root      PathChange       `json:"root"`
	DryRun    bool             `json:"dry_run"`
	Planned   []PathChange     `json:"planned,omitempty"`
	Applied   []PathChange     `json:"applied"`
	Failed    []CascadeFailure `json:"failed"`
}

// OK reports whether every planned change was applied
func (r *CascadeResult) OK() bool {
	return len(r.Failed) == 0
}
