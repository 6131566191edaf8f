package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/projeval/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	calls    atomic.Int32
	errs     []error // 호출 순서대로 반환, 소진 후 nil
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	n := int(j.calls.Add(1)) - 1
	if n < len(j.errs) {
		return j.errs[n]
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop()).WithRetry(2, time.Millisecond)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "0 0 3 * * 1"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "@daily"}))

	err := s.AddJob(&fakeJob{name: "a", schedule: "@daily"})
	assert.ErrorContains(t, err, "already exists")

	err = s.AddJob(&fakeJob{name: "bad", schedule: "not a cron"})
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.ErrorIs(t, s.RemoveJob("a"), ErrJobNotFound)
}

func TestRunJobSync(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		errs        []error
		wantErr     bool
		wantSuccess bool
		wantSkipped bool
		wantCalls   int32
	}{
		{name: "success first try", wantSuccess: true, wantCalls: 1},
		{name: "success after retry", errs: []error{boom}, wantSuccess: true, wantCalls: 2},
		{name: "fails after all retries", errs: []error{boom, boom, boom}, wantErr: true, wantCalls: 3},
		{name: "skip is not retried", errs: []error{fmt.Errorf("%w: locked", ErrSkipped)}, wantSkipped: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler()
			job := &fakeJob{name: "job", schedule: "@daily", errs: tt.errs}
			require.NoError(t, s.AddJob(job))

			result, err := s.RunJobSync(context.Background(), "job")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantSkipped, result.Skipped)
			assert.Equal(t, tt.wantCalls, job.calls.Load())

			history, err := s.GetJobHistory("job")
			require.NoError(t, err)
			assert.Len(t, history.Results, 1)
		})
	}
}

func TestRunJobSync_UnknownJob(t *testing.T) {
	s := newTestScheduler()

	_, err := s.RunJobSync(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, s.RunJob("missing"), ErrJobNotFound)
}

func TestRunJobSync_CancelledContextStopsRetries(t *testing.T) {
	s := New(logger.Nop()).WithRetry(5, time.Hour)
	job := &fakeJob{name: "job", schedule: "@daily", errs: []error{errors.New("x"), errors.New("y")}}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.RunJobSync(ctx, "job")
	assert.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestGetJobStats(t *testing.T) {
	s := newTestScheduler()
	ok := &fakeJob{name: "ok", schedule: "0 0 3 * * 1"}
	skip := &fakeJob{name: "skip", schedule: "@daily", errs: []error{ErrSkipped}}
	require.NoError(t, s.AddJob(ok))
	require.NoError(t, s.AddJob(skip))

	_, err := s.RunJobSync(context.Background(), "ok")
	require.NoError(t, err)
	_, err = s.RunJobSync(context.Background(), "skip")
	require.NoError(t, err)

	stats := s.GetJobStats()
	require.Len(t, stats, 2)

	assert.Equal(t, 1, stats["ok"].TotalRuns)
	assert.Equal(t, 1, stats["ok"].SuccessCount)
	assert.InDelta(t, 1.0, stats["ok"].SuccessRate, 1e-9)
	assert.NotNil(t, stats["ok"].LastSuccess)
	assert.Equal(t, "0 0 3 * * 1", stats["ok"].Schedule)

	assert.Equal(t, 1, stats["skip"].SkippedCount)
	assert.Equal(t, 0, stats["skip"].FailureCount)
	assert.Nil(t, stats["skip"].LastFailure)
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@daily"}))

	s.Start()
	stats := s.GetJobStats()
	require.NotNil(t, stats["a"].NextRun)
	assert.True(t, stats["a"].NextRun.After(time.Now()))
	s.Stop()
}
