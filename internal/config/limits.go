package config

const (
	// MaxResourceNameLength is the maximum length for a single path segment.
	// Matches the VARCHAR(255) name column and most object stores' segment limits.
	MaxResourceNameLength = 255

	// MaxResourcePathLength is the maximum length for a full resource path
	// relative to the course root. S3-compatible stores cap object keys at
	// 1024 bytes and the course ID prefix has to fit as well.
	MaxResourcePathLength = 900

	// MaxUploadFileSize is the largest single file accepted by the upload pipeline.
	MaxUploadFileSize = 512 << 20

	// MaxMultipartMemory is the in-memory budget for parsing upload forms;
	// larger parts spill to temporary files.
	MaxMultipartMemory = 64 << 20

	// DefaultUploadConcurrency bounds concurrent per-file uploads in a batch.
	DefaultUploadConcurrency = 8

	// DefaultCascadeConcurrency bounds concurrent descendant rewrites in a cascade.
	DefaultCascadeConcurrency = 16

	// DirectoryPageSize is how many entries a directory reader returns per page.
	DirectoryPageSize = 100
)
