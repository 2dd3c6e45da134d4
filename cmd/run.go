package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	rgethttp "github.com/tanq16/rget/internal/downloaders/http"
	"github.com/tanq16/rget/internal/output"
	"github.com/tanq16/rget/internal/ratelimit"
	"github.com/tanq16/rget/internal/scheduler"
	"github.com/tanq16/rget/internal/utils"
)

// runOptions is the validated form of the global flags.
type runOptions struct {
	Threads    int
	Workers    int
	Resume     bool
	ChunkSize  int
	Timeout    time.Duration
	LimitRate  int64
	HTTPConfig utils.HTTPClientConfig
}

func parseRunOptions() (runOptions, error) {
	if threads < 1 {
		return runOptions{}, fmt.Errorf("%w: --threads must be at least 1, got %d", utils.ErrConfig, threads)
	}
	if workers < 1 {
		return runOptions{}, fmt.Errorf("%w: --parallel-downloads must be at least 1, got %d", utils.ErrConfig, workers)
	}
	inactivity, err := utils.ParseTimeout(timeout)
	if err != nil {
		return runOptions{}, fmt.Errorf("%w: --timeout: %v", utils.ErrConfig, err)
	}
	rate, err := utils.ParseByteSize(limitRate)
	if err != nil {
		return runOptions{}, fmt.Errorf("%w: --limit-rate: %v", utils.ErrConfig, err)
	}
	chunk, err := utils.ParseByteSize(chunkSize)
	if err != nil || chunk <= 0 {
		return runOptions{}, fmt.Errorf("%w: --chunk-size must be a positive size, got %q", utils.ErrConfig, chunkSize)
	}
	httpConfig, err := buildHTTPConfig(inactivity)
	if err != nil {
		return runOptions{}, err
	}
	return runOptions{
		Threads:    threads,
		Workers:    workers,
		Resume:     resume,
		ChunkSize:  int(min(chunk, utils.MaxBufferSize)),
		Timeout:    inactivity,
		LimitRate:  rate,
		HTTPConfig: httpConfig,
	}, nil
}

func buildJobs(entries []utils.DownloadEntry, opts runOptions) []*utils.RgetJob {
	jobs := make([]*utils.RgetJob, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, &utils.RgetJob{
			ID:                uuid.New().String(),
			JobType:           "http",
			URL:               entry.URL,
			OutputPath:        entry.OutputPath,
			Connections:       opts.Threads,
			Resume:            opts.Resume,
			ChunkSize:         opts.ChunkSize,
			InactivityTimeout: opts.Timeout,
			Metadata:          make(map[string]any),
			HTTPClientConfig:  opts.HTTPConfig,
		})
	}
	return jobs
}

// runEntries downloads every entry and reports errRunFailed when any of
// them failed.
func runEntries(ctx context.Context, entries []utils.DownloadEntry) error {
	opts, err := parseRunOptions()
	if err != nil {
		return err
	}

	var logWriter io.Writer
	if logToFile {
		logFile, err := os.OpenFile(utils.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		defer logFile.Close()
		logWriter = logFile
	}
	utils.InitLogger(debug, logWriter)

	jobs := buildJobs(entries, opts)
	limiter := ratelimit.New(opts.LimitRate)
	log.Debug().Str("op", "cmd/run").Int("targets", len(jobs)).Int("threads", opts.Threads).Int("workers", opts.Workers).Int64("limitRate", opts.LimitRate).Msg("Starting run")

	outputMgr := output.NewManager(os.Stdout, !noProgress && output.IsTerminal(os.Stdout))
	outputMgr.StartDisplay()
	report := scheduler.Run(ctx, jobs, scheduler.Config{
		Workers:     opts.Workers,
		Downloaders: map[string]utils.Downloader{"http": rgethttp.NewHTTPDownloader(limiter)},
		Output:      outputMgr,
	})
	outputMgr.StopDisplay()

	if err := report.Err(); err != nil {
		log.Debug().Err(err).Msg("Run finished with failures")
		return errRunFailed
	}
	return nil
}
