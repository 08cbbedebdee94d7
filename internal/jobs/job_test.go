package jobs

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"Pending to processing", StatusPending, StatusProcessing, false},
		{"Processing to completed", StatusProcessing, StatusCompleted, false},
		{"Processing to failed", StatusProcessing, StatusFailed, false},
		{"Same status allowed", StatusProcessing, StatusProcessing, false},
		{"Pending cannot skip processing", StatusPending, StatusCompleted, true},
		{"Pending cannot fail directly", StatusPending, StatusFailed, true},
		{"Completed is terminal", StatusCompleted, StatusProcessing, true},
		{"Failed is terminal", StatusFailed, StatusProcessing, true},
		{"Completed cannot fail", StatusCompleted, StatusFailed, true},
		{"No backwards move", StatusProcessing, StatusPending, true},
		{"Unknown status rejected", StatusPending, Status("bogus"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestNewJob(t *testing.T) {
	job := New("Tell me about Acme Corp", true, 7*24*time.Hour)

	assert.True(t, strings.HasPrefix(job.ID, "job_"))
	assert.Equal(t, "Tell me about Acme Corp", job.Query)
	assert.True(t, job.DeepResearch)
	assert.Equal(t, StatusPending, job.Status)
	assert.NotEmpty(t, job.Message)
	assert.Empty(t, job.Result)
	assert.Empty(t, job.Error)
	assert.True(t, job.ExpiresAt.After(job.CreatedAt))
}

func TestNewJobIDsAreUnique(t *testing.T) {
	a := New("q", false, time.Hour)
	b := New("q", false, time.Hour)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUpdateValidate(t *testing.T) {
	processing := &Job{ID: "job_1", Status: StatusProcessing}

	tests := []struct {
		name    string
		job     *Job
		update  Update
		wantErr bool
	}{
		{
			"Result only on completed",
			processing,
			Update{Result: StringOf("answer")},
			true,
		},
		{
			"Error only on failed",
			processing,
			Update{Error: StringOf("boom")},
			true,
		},
		{
			"Result with completed",
			processing,
			Update{Status: StatusOf(StatusCompleted), Result: StringOf("answer")},
			false,
		},
		{
			"Error with failed",
			processing,
			Update{Status: StatusOf(StatusFailed), Error: StringOf("boom")},
			false,
		},
		{
			"Result and error mutually exclusive",
			processing,
			Update{Status: StatusOf(StatusCompleted), Result: StringOf("a"), Error: StringOf("b")},
			true,
		},
		{
			"Message-only update keeps status",
			processing,
			Update{Message: StringOf("still working")},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.validate(tt.job)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
