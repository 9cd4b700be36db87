package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubJob struct {
	runs int
	err  error
}

func (j *stubJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func (j *stubJob) GetNextRunTime() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func TestRunNow_RegisteredJob(t *testing.T) {
	scheduler := NewJobScheduler()
	defer scheduler.Stop()

	job := &stubJob{}
	scheduler.Register("cleanup", job)

	if err := scheduler.RunNow("cleanup"); err != nil {
		t.Fatalf("RunNow() = %v", err)
	}
	if job.runs != 1 {
		t.Errorf("job ran %d times, want 1", job.runs)
	}
}

func TestRunNow_UnknownJob(t *testing.T) {
	scheduler := NewJobScheduler()
	defer scheduler.Stop()

	if err := scheduler.RunNow("no-such-job"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("RunNow() = %v, want ErrJobNotFound", err)
	}
}

func TestRunNow_PropagatesJobError(t *testing.T) {
	scheduler := NewJobScheduler()
	defer scheduler.Stop()

	jobErr := errors.New("sweep failed")
	scheduler.Register("cleanup", &stubJob{err: jobErr})

	if err := scheduler.RunNow("cleanup"); !errors.Is(err, jobErr) {
		t.Errorf("RunNow() = %v, want %v", err, jobErr)
	}
}
