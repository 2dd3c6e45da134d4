package rgethttp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rget/internal/utils"
	"golang.org/x/sync/errgroup"
)

func (d *HTTPDownloader) Download(ctx context.Context, job *utils.RgetJob) utils.Outcome {
	logger := log.With().Str("op", "http/download").Str("output", job.OutputPath).Logger()
	client, ok := job.Metadata["client"].(*utils.RgetHTTPClient)
	if !ok {
		client = utils.NewRgetHTTPClient(job.HTTPClientConfig)
	}
	defer client.CloseIdleConnections()

	caps, ok := job.Metadata["capabilities"].(Capabilities)
	if !ok {
		var err error
		if caps, err = Probe(ctx, client, job.URL); err != nil {
			return utils.Failed(err)
		}
	}
	localSize, err := localFileSize(job.OutputPath)
	if err != nil {
		return utils.Failed(err)
	}

	plan := Plan(localSize, caps, job.Resume, job.Connections)
	logger.Debug().Str("mode", plan.Mode.String()).Int("ranges", len(plan.Ranges)).Int64("localSize", localSize).Int64("remoteSize", caps.Length).Msg(plan.Reason)
	if plan.Mode == ModeNothing {
		return utils.Skipped(plan.Reason)
	}
	if job.Resume && plan.Truncate && localSize > 0 {
		logger.Warn().Int64("localSize", localSize).Int64("remoteSize", caps.Length).Msg(plan.Reason)
	}

	written, err := d.execute(ctx, job, client, caps, plan, logger)
	if errors.Is(err, ErrRangeNotSatisfiable) && plan.Mode == ModeResume {
		return utils.Skipped("server has no bytes beyond local file")
	}
	if err != nil {
		logger.Error().Err(err).Int64("written", written).Msg("Download failed")
		return utils.Failed(err)
	}
	logger.Debug().Int64("written", written).Msg("Download completed")
	return utils.Completed(written)
}

// execute runs plan against the destination file. A server that ignores
// Range gets one more attempt as a whole-body download.
func (d *HTTPDownloader) execute(ctx context.Context, job *utils.RgetJob, client utils.HTTPDoer, caps Capabilities, plan ExecutionPlan, logger zerolog.Logger) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0755); err != nil {
		return 0, &IOError{Op: "creating directory for", Path: job.OutputPath, Err: err}
	}
	flag := os.O_CREATE | os.O_WRONLY
	if plan.Truncate {
		flag |= os.O_TRUNC
	}
	outFile, err := os.OpenFile(job.OutputPath, flag, 0644)
	if err != nil {
		return 0, &IOError{Op: "opening", Path: job.OutputPath, Err: err}
	}
	defer outFile.Close()

	progressCh := make(chan int64, 100)
	progressDone := trackProgress(job, caps.Length, plan.Offset(), progressCh)

	written, err := d.run(ctx, job, client, outFile, plan, progressCh, logger)
	if errors.Is(err, ErrRangeUnsupported) {
		logger.Warn().Str("mode", plan.Mode.String()).Msg("Server ignored range request, restarting as single-stream download")
		progressCh <- -(plan.Offset() + written)
		if err := outFile.Truncate(0); err != nil {
			close(progressCh)
			<-progressDone
			return 0, &IOError{Op: "truncating", Path: job.OutputPath, Err: err}
		}
		plan = singlePlan("range requests ignored by server")
		written, err = d.run(ctx, job, client, outFile, plan, progressCh, logger)
	}
	close(progressCh)
	<-progressDone
	if err != nil {
		return written, err
	}

	total := plan.Offset() + written
	if caps.KnownLength() && total < caps.Length {
		return written, fmt.Errorf("%w: expected %d bytes, file has %d", ErrSizeMismatch, caps.Length, total)
	}
	if caps.KnownLength() && total > caps.Length {
		logger.Warn().Int64("expected", caps.Length).Int64("actual", total).Msg("Remote file grew during download")
	}
	if err := outFile.Sync(); err != nil {
		return written, &IOError{Op: "syncing", Path: job.OutputPath, Err: err}
	}
	return written, nil
}

// run starts the workers for plan and waits for them. In partitioned mode
// the first failing worker cancels its siblings through the group context,
// which is scoped to this file only.
func (d *HTTPDownloader) run(ctx context.Context, job *utils.RgetJob, client utils.HTTPDoer, outFile *os.File, plan ExecutionPlan, progressCh chan<- int64, logger zerolog.Logger) (int64, error) {
	newRequest := func(id int, r ByteRange, ranged bool) rangeRequest {
		return rangeRequest{
			ID:         id,
			URL:        job.URL,
			Path:       job.OutputPath,
			Client:     client,
			Out:        outFile,
			Range:      r,
			Ranged:     ranged,
			Limiter:    d.Limiter,
			Timeout:    job.InactivityTimeout,
			BufferSize: job.ChunkSize,
			ProgressCh: progressCh,
		}
	}

	if plan.Mode != ModePartitioned {
		return fetchRange(ctx, newRequest(0, plan.Ranges[0], plan.Mode == ModeResume), logger)
	}

	var written atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	for i, r := range plan.Ranges {
		i, r := i, r
		group.Go(func() error {
			n, err := fetchRange(groupCtx, newRequest(i, r, true), logger)
			written.Add(n)
			if err != nil && !errors.Is(err, ErrCancelled) {
				logger.Debug().Err(err).Int("worker", i).Msg("Worker failed, cancelling siblings")
			}
			return err
		})
	}
	err := group.Wait()
	return written.Load(), err
}

func trackProgress(job *utils.RgetJob, total, initial int64, progressCh <-chan int64) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		downloaded := initial
		report := func() {
			if job.ProgressFunc != nil {
				job.ProgressFunc(downloaded, total)
			}
		}
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case bytes, ok := <-progressCh:
				if !ok {
					report()
					return
				}
				downloaded += bytes
			case <-ticker.C:
				report()
			}
		}
	}()
	return done
}

func localFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, &IOError{Op: "checking", Path: path, Err: err}
	}
	if info.IsDir() {
		return 0, &IOError{Op: "checking", Path: path, Err: errors.New("is a directory")}
	}
	return info.Size(), nil
}
