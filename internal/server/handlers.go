package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/portfolio-research/internal/jobs"
)

// ResearchRequest represents the request body for POST /api/research
type ResearchRequest struct {
	Query        string `json:"query" validate:"required,min=1,max=2000"`
	DeepResearch bool   `json:"deep_research"`
}

// SubmitResponse represents the response for POST /api/research
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// streamPollInterval is how often the SSE stream re-reads the job record.
const streamPollInterval = 2 * time.Second

// handleSubmit creates a research job and triggers its orchestrator run.
// Each submission creates a fresh job id; an existing job is never re-run.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "query is required and must be 1-2000 characters")
		return
	}

	job := jobs.New(req.Query, req.DeepResearch, s.jobRetention)
	if err := s.store.Create(r.Context(), job); err != nil {
		log.Printf("Failed to create job: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	log.Printf("Created job %s (deep_research=%v)", job.ID, job.DeepResearch)

	// Fire-and-trigger: the run outlives this request, so it gets its own
	// context. The result is only observable by polling the job.
	go func() {
		if err := s.orch.Run(context.Background(), job.ID); err != nil {
			log.Printf("Orchestrator run for job %s failed: %v", job.ID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, SubmitResponse{
		JobID:   job.ID,
		Status:  string(job.Status),
		Message: job.Message,
	})
}

// handleStatus returns the current job record.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := s.store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "Job not found")
			return
		}
		log.Printf("Failed to load job %s: %v", jobID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	s.jsonResponse(w, http.StatusOK, job)
}

// handleStream streams job status snapshots via SSE until the job reaches a
// terminal state or the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := s.store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, "Job not found")
			return
		}
		log.Printf("Failed to load job %s: %v", jobID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	stream, err := newJobStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	for {
		if err := stream.status(job); err != nil {
			log.Printf("Error writing SSE event for job %s: %v", jobID, err)
			return
		}
		if job.Status.Terminal() {
			stream.complete(job)
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		job, err = s.store.Get(r.Context(), jobID)
		if err != nil {
			stream.fail("Failed to load job")
			return
		}
	}
}
