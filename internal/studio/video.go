package studio

import (
	"context"
	"time"

	cerrors "signature-card-studio/internal/errors"
)

// VideoState is the phase of a background video job.
type VideoState string

const (
	VideoIdle      VideoState = "idle"
	VideoSubmitted VideoState = "submitted"
	VideoPolling   VideoState = "polling"
	VideoDone      VideoState = "done"
	VideoFailed    VideoState = "failed"
)

func (s VideoState) Terminal() bool { return s == VideoDone || s == VideoFailed }

// VideoJob is the public view of the current video job.
type VideoJob struct {
	ID        string     `json:"id,omitempty"`
	State     VideoState `json:"state"`
	Operation string     `json:"operation,omitempty"`
	Ratio     string     `json:"ratio,omitempty"`
	URI       string     `json:"uri,omitempty"`
	Error     string     `json:"error,omitempty"`
	Polls     int        `json:"polls"`
	StartedAt time.Time  `json:"started_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// videoJob is the session-owned state machine. seq identifies a submission;
// a poll loop may only report into the job while its seq is current.
type videoJob struct {
	VideoJob
	seq    uint64
	err    *cerrors.CardError
	done   chan struct{}
	cancel context.CancelFunc
}

func (j *videoJob) public() VideoJob {
	if j.State == "" {
		return VideoJob{State: VideoIdle}
	}
	return j.VideoJob
}

// supersede abandons the current job. A running poll loop sees the new seq
// and drops its result.
func (j *videoJob) supersede() {
	j.seq++
	if j.cancel != nil {
		j.cancel()
	}
	if j.done != nil && !j.State.Terminal() {
		close(j.done)
	}
	j.VideoJob = VideoJob{State: VideoIdle}
	j.err = nil
	j.done = nil
	j.cancel = nil
}

// submit starts a new job and returns its seq.
func (j *videoJob) submit(id, operation, ratio string, now time.Time, cancel context.CancelFunc) uint64 {
	j.supersede()
	j.cancel = cancel
	j.VideoJob = VideoJob{
		ID:        id,
		State:     VideoSubmitted,
		Operation: operation,
		Ratio:     ratio,
		StartedAt: now,
		UpdatedAt: now,
	}
	j.done = make(chan struct{})
	return j.seq
}

func (j *videoJob) current(seq uint64) bool {
	return j.seq == seq && !j.State.Terminal() && j.State != VideoIdle
}

func (j *videoJob) polled(seq uint64, now time.Time) bool {
	if !j.current(seq) {
		return false
	}
	j.State = VideoPolling
	j.Polls++
	j.UpdatedAt = now
	return true
}

func (j *videoJob) succeed(seq uint64, uri string, now time.Time) bool {
	if !j.current(seq) {
		return false
	}
	j.State = VideoDone
	j.URI = uri
	j.UpdatedAt = now
	j.finish()
	return true
}

func (j *videoJob) fail(seq uint64, err *cerrors.CardError, now time.Time) bool {
	if !j.current(seq) {
		return false
	}
	j.State = VideoFailed
	j.Error = err.Message
	j.err = err
	j.UpdatedAt = now
	j.finish()
	return true
}

func (j *videoJob) finish() {
	close(j.done)
	if j.cancel != nil {
		j.cancel()
		j.cancel = nil
	}
}
