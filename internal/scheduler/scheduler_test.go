package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	err      error
	runs     int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	job := &countingJob{name: "snap", schedule: "0 0 18 * * *"}
	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate job name")

	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "every day"}))
	assert.Equal(t, []string{"snap"}, s.GetAllJobs())
}

func TestRunJobRunsOnceWithoutRetry(t *testing.T) {
	s := New(logger.Nop())

	job := &countingJob{name: "snap", schedule: "@daily", err: errors.New("all sources failed")}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("snap")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "all sources failed", result.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.runs))

	_, err = s.RunJob("missing")
	assert.Error(t, err)
}

func TestJobStats(t *testing.T) {
	s := New(logger.Nop())

	ok := &countingJob{name: "ok", schedule: "@hourly"}
	require.NoError(t, s.AddJob(ok))

	for i := 0; i < 3; i++ {
		_, err := s.RunJob("ok")
		require.NoError(t, err)
	}

	stats := s.GetJobStats()["ok"]
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 3, stats.SuccessCount)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)

	history, err := s.GetJobHistory("ok")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&countingJob{name: "snap", schedule: "@daily"}))

	s.Start()
	defer s.Stop()

	_, ok := s.NextRun("snap")
	assert.True(t, ok)

	require.NoError(t, s.RemoveJob("snap"))
	assert.Error(t, s.RemoveJob("snap"))
	assert.Empty(t, s.GetAllJobs())

	_, ok = s.NextRun("snap")
	assert.False(t, ok)
}

func TestJobHistoryKeepsLast100(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 120; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.Len(t, h.GetFailedResults(), 50)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
}

func TestJobHistoryStats(t *testing.T) {
	h := &JobHistory{}
	base := time.Date(2026, 1, 2, 18, 0, 0, 0, time.UTC)
	h.AddResult(JobResult{StartTime: base, Success: true})
	h.AddResult(JobResult{StartTime: base.Add(time.Hour), Success: false, Error: "All sources failed."})
	h.AddResult(JobResult{StartTime: base.Add(2 * time.Hour), Success: false})

	st := h.Stats("holdings_snapshot", "0 0 18 * * *")

	assert.Equal(t, 3, st.TotalRuns)
	assert.Equal(t, 1, st.SuccessCount)
	assert.Equal(t, 2, st.FailureCount)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, base.Add(2*time.Hour), *st.LastRun)
	require.NotNil(t, st.LastSuccess)
	assert.Equal(t, base, *st.LastSuccess)
	require.NotNil(t, st.LastFailure)
	assert.Equal(t, base.Add(2*time.Hour), *st.LastFailure)

	empty := (&JobHistory{}).Stats("x", "@daily")
	assert.Nil(t, empty.LastRun)
	assert.Zero(t, empty.SuccessRate)
}
