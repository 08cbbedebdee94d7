package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonathan/portfolio-research/internal/jobs"
)

// jobStream pushes job progress to a client as Server-Sent Events: "status"
// snapshots while the job runs, one "complete" event once it is terminal, or
// an "error" event when the record can no longer be read.
type jobStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newJobStream(w http.ResponseWriter) (*jobStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")

	return &jobStream{w: w, flusher: flusher}, nil
}

// status sends the current job record as one snapshot event.
func (js *jobStream) status(job *jobs.Job) error {
	return js.emit("status", job)
}

// complete closes the stream logically once the job reached a terminal state.
func (js *jobStream) complete(job *jobs.Job) {
	_ = js.emit("complete", map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// fail reports a stream-side failure before the handler returns.
func (js *jobStream) fail(message string) {
	_ = js.emit("error", map[string]string{"error": message})
}

func (js *jobStream) emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(js.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	js.flusher.Flush()
	return nil
}
