package utils

import (
	"context"
	"fmt"
	"time"
)

type Downloader interface {
	ValidateJob(job *RgetJob) error
	BuildJob(ctx context.Context, job *RgetJob) error
	Download(ctx context.Context, job *RgetJob) Outcome
}

// RgetJob is one download target: the input URL plus everything needed to
// fetch it. OutputPath is final once BuildJob has run.
type RgetJob struct {
	ID                string
	JobType           string
	URL               string
	OutputPath        string
	Connections       int
	Resume            bool
	ChunkSize         int
	InactivityTimeout time.Duration
	ProgressFunc      func(downloaded, total int64)
	Metadata          map[string]any
	HTTPClientConfig  HTTPClientConfig
}

type DownloadEntry struct {
	OutputPath string `yaml:"op,omitempty"`
	URL        string `yaml:"link"`
}

type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the terminal result of one job.
type Outcome struct {
	Kind   OutcomeKind
	Bytes  int64
	Reason string
	Err    error
}

func Completed(bytes int64) Outcome {
	return Outcome{Kind: OutcomeCompleted, Bytes: bytes}
}

func Skipped(reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Reason: reason}
}

func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

func (o Outcome) Failed() bool {
	return o.Kind == OutcomeFailed
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeCompleted:
		return fmt.Sprintf("completed (%s)", FormatBytes(uint64(max(o.Bytes, 0))))
	case OutcomeSkipped:
		return fmt.Sprintf("skipped: %s", o.Reason)
	case OutcomeFailed:
		return fmt.Sprintf("failed: %v", o.Err)
	}
	return "unknown"
}
