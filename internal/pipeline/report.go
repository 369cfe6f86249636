package pipeline

import (
	"fmt"
	"io"
	"time"
)

// FileReport is the outcome of one capture file.
type FileReport struct {
	Name       string `json:"name"`
	FramesRead int    `json:"frames_read"`
	Records    int    `json:"records"`
	Dropped    int    `json:"dropped"`
	Capped     int    `json:"capped"`
	Filtered   int    `json:"filtered"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes a parse run.
type Report struct {
	FilesProcessed int          `json:"files_processed"`
	FilesFailed    int          `json:"files_failed"`
	FramesRead     int          `json:"frames_read"`
	RecordsWritten int          `json:"records_written"`
	Dropped        int          `json:"dropped"`
	Capped         int          `json:"capped"`
	Filtered       int          `json:"filtered"`
	Files          []FileReport `json:"files"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
}

// Skipped is the number of frames that never became records: undecodable
// frames plus frames beyond the per-file cap.
func (r *Report) Skipped() int {
	return r.Dropped + r.Capped
}

// Print writes the human-readable summary shown after a parse.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Files processed: %d\n", r.FilesProcessed)
	fmt.Fprintf(w, "Files failed:    %d\n", r.FilesFailed)
	fmt.Fprintf(w, "Frames read:     %d\n", r.FramesRead)
	fmt.Fprintf(w, "Records written: %d\n", r.RecordsWritten)
	fmt.Fprintf(w, "Frames skipped:  %d (dropped %d, capped %d)\n", r.Skipped(), r.Dropped, r.Capped)
	fmt.Fprintf(w, "Frames filtered: %d\n", r.Filtered)
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Elapsed:         %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
}
