package resource

import (
	"sync"

	models "lectern/internal/domain/models/resource"
	resourceSvc "lectern/internal/domain/services/resource"
)

// progressTracker aggregates byte progress across concurrent uploads and
// serializes callbacks, so observers see a non-decreasing sequence.
type progressTracker struct {
	mu       sync.Mutex
	uploaded int64
	total    int64
	fn       resourceSvc.ProgressFunc
}

// newProgressTracker reports the reset (0,0) and then (0,total)
func newProgressTracker(total int64, fn resourceSvc.ProgressFunc) *progressTracker {
	t := &progressTracker{fn: fn}
	t.emit(models.Progress{})
	t.total = total
	t.emit(models.Progress{TotalBytes: total})
	return t
}

func (t *progressTracker) emit(p models.Progress) {
	if t.fn != nil {
		t.fn(p)
	}
}

// add credits a file's full size once its blob is stored
func (t *progressTracker) add(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.uploaded += n
	t.emit(models.Progress{UploadedBytes: t.uploaded, TotalBytes: t.total})
}

// uploadedBytes returns the bytes credited so far
func (t *progressTracker) uploadedBytes() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.uploaded
}

// finish reports the final reset with Done set
func (t *progressTracker) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emit(models.Progress{Done: true})
}
