package rgethttp

import "fmt"

// Capabilities is what a probe learned about one remote file.
type Capabilities struct {
	Length        int64 // -1 when the server did not report it
	AcceptsRanges bool
	FileName      string
	ETag          string
	LastModified  string
}

func (c Capabilities) KnownLength() bool {
	return c.Length >= 0
}

// ByteRange is an inclusive span [Start, End]. End < 0 means open-ended.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Bounded() bool {
	return r.End >= 0
}

func (r ByteRange) Len() int64 {
	if !r.Bounded() {
		return -1
	}
	return r.End - r.Start + 1
}

// Header renders the Range header value, "" for a whole-body request.
func (r ByteRange) Header() string {
	if r.Bounded() {
		return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
	}
	if r.Start > 0 {
		return fmt.Sprintf("bytes=%d-", r.Start)
	}
	return ""
}

type Mode int

const (
	ModeSingle Mode = iota
	ModePartitioned
	ModeResume
	ModeNothing
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModePartitioned:
		return "partitioned"
	case ModeResume:
		return "resume"
	case ModeNothing:
		return "nothing"
	}
	return "unknown"
}

// ExecutionPlan is the output of Plan: which ranges to fetch and whether the
// local file must be discarded first.
type ExecutionPlan struct {
	Mode     Mode
	Ranges   []ByteRange
	Truncate bool
	Reason   string
}

// Offset is where the first write lands.
func (p ExecutionPlan) Offset() int64 {
	if len(p.Ranges) == 0 {
		return 0
	}
	return p.Ranges[0].Start
}
