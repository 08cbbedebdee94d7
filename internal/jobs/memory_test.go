package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	job := New("Tell me about Acme Corp", false, time.Hour)
	require.NoError(t, store.Create(ctx, job))

	// Duplicate create is rejected
	assert.Error(t, store.Create(ctx, job))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	// Claim
	got, err = store.Update(ctx, job.ID, Update{
		Status:  StatusOf(StatusProcessing),
		Message: StringOf("Starting research..."),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, "Starting research...", got.Message)

	// Complete
	got, err = store.Update(ctx, job.ID, Update{
		Status: StatusOf(StatusCompleted),
		Result: StringOf("# Acme Corp\n..."),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.NotEmpty(t, got.Result)

	// Terminal state cannot regress
	_, err = store.Update(ctx, job.ID, Update{Status: StatusOf(StatusProcessing)})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "job_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	job := New("q", false, time.Hour)
	require.NoError(t, store.Create(ctx, job))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	got.Status = StatusCompleted

	again, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
}

// Polling while the orchestrator writes progress is the normal operating
// mode, so Get and Update must be safe to run concurrently.
func TestMemoryStoreConcurrentGetAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	job := New("q", false, time.Hour)
	require.NoError(t, store.Create(ctx, job))

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if _, err := store.Update(ctx, job.ID, Update{Message: StringOf("progress")}); err != nil {
				t.Errorf("update failed: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			got, err := store.Get(ctx, job.ID)
			if err != nil {
				t.Errorf("get failed: %v", err)
				return
			}
			if got.Status != StatusPending {
				t.Errorf("unexpected status %s", got.Status)
				return
			}
		}
	}()

	wg.Wait()
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	current := time.Now().UTC()
	store.now = func() time.Time { return current }

	job := New("q", false, time.Hour)
	require.NoError(t, store.Create(ctx, job))

	// Still live just before expiry
	current = job.ExpiresAt.Add(-time.Minute)
	_, err := store.Get(ctx, job.ID)
	require.NoError(t, err)

	// Gone after expiry
	current = job.ExpiresAt.Add(time.Minute)
	_, err = store.Get(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Update(ctx, job.ID, Update{Message: StringOf("late")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	current := time.Now().UTC()
	store.now = func() time.Time { return current }

	short := New("short", false, time.Minute)
	long := New("long", false, time.Hour)
	require.NoError(t, store.Create(ctx, short))
	require.NoError(t, store.Create(ctx, long))

	current = current.Add(10 * time.Minute)
	assert.Equal(t, 1, store.PurgeExpired())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, long.ID)
	assert.NoError(t, err)
}
