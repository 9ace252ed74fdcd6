package resource

// TreeNode is a record annotated with its depth below the course root and,
// for folders, its children (folders first, then case-insensitive name).
type TreeNode struct {
	ResourceRecord
	Depth    int         `json:"depth"`
	Children []*TreeNode `json:"children,omitempty"`
}
