package resource

// Progress is the aggregate byte progress of one upload batch
type Progress struct {
	UploadedBytes int64 `json:"uploaded_bytes"`
	TotalBytes    int64 `json:"total_bytes"`
	Done          bool  `json:"done"`
}

// Ratio returns UploadedBytes/TotalBytes in [0,1]; 0 for an empty batch
func (p Progress) Ratio() float64 {
	if p.TotalBytes <= 0 {
		return 0
	}
	r := float64(p.UploadedBytes) / float64(p.TotalBytes)
	if r > 1 {
		return 1
	}
	return r
}

// UploadResult represents the result of one upload batch
type UploadResult struct {
	Summary UploadSummary    `json:"summary"`
	Records []ResourceRecord `json:"records"`
	Folders []string         `json:"folders,omitempty"` // Empty folders materialized from dropped trees
	Errors  []UploadError    `json:"errors"`
}

// UploadSummary contains aggregate statistics for an upload batch
type UploadSummary struct {
	TotalFiles    int   `json:"total_files"`
	Uploaded      int   `json:"uploaded"`
	Failed        int   `json:"failed"`
	TotalBytes    int64 `json:"total_bytes"`
	UploadedBytes int64 `json:"uploaded_bytes"`
}

// UploadError represents one file that could not be stored
type UploadError struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}
