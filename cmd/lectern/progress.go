package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	models "lectern/internal/domain/models/resource"
)

// progressPrinter redraws one status line per progress event
type progressPrinter struct {
	w io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) update(progress models.Progress) {
	fmt.Fprintf(p.w, "\r%s / %s (%3.0f%%)",
		humanize.IBytes(uint64(progress.UploadedBytes)),
		humanize.IBytes(uint64(progress.TotalBytes)),
		progress.Ratio()*100,
	)
	if progress.Done {
		fmt.Fprintln(p.w)
	}
}
