package rgethttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-http-utils/headers"
	"github.com/rs/zerolog"
	"github.com/tanq16/rget/internal/ratelimit"
	"github.com/tanq16/rget/internal/utils"
)

// rangeRequest is everything one worker needs to fetch one span.
type rangeRequest struct {
	ID         int
	URL        string
	Path       string
	Client     utils.HTTPDoer
	Out        io.WriterAt
	Range      ByteRange
	Ranged     bool // send the Range header
	Limiter    *ratelimit.Limiter
	Timeout    time.Duration // inactivity timeout, 0 disables it
	BufferSize int
	ProgressCh chan<- int64
}

// transferState is owned by a single worker.
type transferState struct {
	written  int64
	lastByte time.Time
}

// watchdog cancels a request when no data arrives for timeout.
type watchdog struct {
	timer   *time.Timer
	timeout time.Duration
	fired   atomic.Bool
}

func newWatchdog(timeout time.Duration, cancel context.CancelFunc) *watchdog {
	w := &watchdog{timeout: timeout}
	if timeout <= 0 {
		return w
	}
	w.timer = time.AfterFunc(timeout, func() {
		w.fired.Store(true)
		cancel()
	})
	return w
}

// pause stops the clock while the worker waits on its own rate limiter.
func (w *watchdog) pause() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *watchdog) reset() {
	if w.timer != nil && !w.fired.Load() {
		w.timer.Reset(w.timeout)
	}
}

func (w *watchdog) Fired() bool {
	return w.fired.Load()
}

// fetchRange streams one span of the remote file into Out at its own offset.
// It returns the number of bytes written.
func fetchRange(ctx context.Context, r rangeRequest, logger zerolog.Logger) (int64, error) {
	logger = logger.With().Int("worker", r.ID).Str("range", r.Range.Header()).Logger()
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	dog := newWatchdog(r.Timeout, cancel)
	defer dog.pause()

	state := transferState{lastByte: time.Now()}
	fail := func(err error) (int64, error) {
		switch {
		case dog.Fired():
			logger.Debug().Int64("written", state.written).Dur("silence", time.Since(state.lastByte)).Msg("Worker stalled")
			return state.written, fmt.Errorf("%w: no data for %s", ErrStalled, r.Timeout)
		case ctx.Err() != nil:
			return state.written, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return state.written, err
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, r.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("error creating GET request: %w", err)
	}
	if r.Ranged {
		if rangeHeader := r.Range.Header(); rangeHeader != "" {
			req.Header.Set(headers.Range, rangeHeader)
		}
	}
	logger.Debug().Msg("Sending request")
	resp, err := r.Client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("error executing GET request: %w", err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, r); err != nil {
		return 0, err
	}
	dog.reset()

	bufferSize := r.BufferSize
	if bufferSize <= 0 {
		bufferSize = utils.DefaultBufferSize
	}
	bufferSize = min(bufferSize, utils.MaxBufferSize)
	remaining := r.Range.Len() // -1 when open-ended
	offset := r.Range.Start
	buffer := make([]byte, bufferSize)
	for remaining != 0 {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			state.lastByte = time.Now()
			if remaining > 0 && int64(n) > remaining {
				n = int(remaining)
			}
			dog.pause()
			if err := r.Limiter.Acquire(ctx, n); err != nil {
				return fail(err)
			}
			if _, err := r.Out.WriteAt(buffer[:n], offset); err != nil {
				return state.written, &IOError{Op: "writing", Path: r.Path, Err: err}
			}
			offset += int64(n)
			state.written += int64(n)
			if remaining > 0 {
				remaining -= int64(n)
			}
			if r.ProgressCh != nil {
				r.ProgressCh <- int64(n)
			}
			dog.reset()
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return fail(fmt.Errorf("error reading response body: %w", readErr))
		}
	}
	if dog.Fired() {
		return fail(nil)
	}
	if remaining > 0 {
		return state.written, fmt.Errorf("%w: range ended early, %d of %d bytes: %w", ErrSizeMismatch, state.written, r.Range.Len(), io.ErrUnexpectedEOF)
	}
	logger.Debug().Int64("written", state.written).Msg("Worker finished")
	return state.written, nil
}

func checkStatus(resp *http.Response, r rangeRequest) error {
	ranged := r.Ranged && r.Range.Header() != ""
	switch {
	case resp.StatusCode == http.StatusPartialContent && ranged:
		return nil
	case resp.StatusCode == http.StatusOK && ranged:
		return ErrRangeUnsupported
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
		return nil
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && ranged:
		return ErrRangeNotSatisfiable
	}
	return &StatusError{StatusCode: resp.StatusCode, URL: r.URL}
}
