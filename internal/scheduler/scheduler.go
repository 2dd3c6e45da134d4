package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rget/internal/output"
	"github.com/tanq16/rget/internal/utils"
	"golang.org/x/sync/semaphore"
)

type Config struct {
	// Workers is the number of files downloaded at once.
	Workers     int
	Downloaders map[string]utils.Downloader
	// Output is optional; without it nothing is displayed.
	Output *output.Manager
}

type Result struct {
	Job     *utils.RgetJob
	Outcome utils.Outcome
	Elapsed time.Duration
}

// Report holds one Result per job, in input order.
type Report struct {
	Results []Result
}

func (r Report) Failed() int {
	count := 0
	for _, res := range r.Results {
		if res.Outcome.Failed() {
			count++
		}
	}
	return count
}

// Err combines every failure of the run, or returns nil.
func (r Report) Err() error {
	var result *multierror.Error
	for _, res := range r.Results {
		if res.Outcome.Failed() {
			result = multierror.Append(result, fmt.Errorf("%s: %w", res.Job.URL, res.Outcome.Err))
		}
	}
	return result.ErrorOrNil()
}

type scheduler struct {
	cfg     Config
	claimMu sync.Mutex
	claimed map[string]bool
}

// Run downloads every job with at most cfg.Workers in flight. Jobs start in
// input order and one job failing never affects another.
func Run(ctx context.Context, jobs []*utils.RgetJob, cfg Config) Report {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	s := &scheduler{cfg: cfg, claimed: make(map[string]bool)}
	report := Report{Results: make([]Result, len(jobs))}
	log.Debug().Str("op", "scheduler/run").Int("jobs", len(jobs)).Int("workers", cfg.Workers).Msg("Starting scheduler")

	ids := make([]int, len(jobs))
	for i, job := range jobs {
		report.Results[i].Job = job
		if cfg.Output != nil {
			ids[i] = cfg.Output.Register(job.URL)
		}
	}

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	for i, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// cancelled before this job got a slot
			for j := i; j < len(jobs); j++ {
				report.Results[j].Outcome = utils.Failed(fmt.Errorf("not started: %w", err))
				s.finish(ids[j], jobs[j], report.Results[j])
			}
			break
		}
		i, job := i, job
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			start := time.Now()
			outcome := s.process(ctx, ids[i], job)
			report.Results[i].Outcome = outcome
			report.Results[i].Elapsed = time.Since(start)
			s.finish(ids[i], job, report.Results[i])
		}()
	}
	wg.Wait()
	log.Debug().Str("op", "scheduler/run").Int("failed", report.Failed()).Msg("Scheduler finished")
	return report
}

func (s *scheduler) process(ctx context.Context, id int, job *utils.RgetJob) (outcome utils.Outcome) {
	logger := log.With().Str("op", "scheduler/process").Str("url", job.URL).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Downloader panicked")
			outcome = utils.Failed(fmt.Errorf("downloader panic: %v", r))
		}
	}()

	downloader, ok := s.cfg.Downloaders[job.JobType]
	if !ok {
		return utils.Failed(fmt.Errorf("%w: unknown job type %q", utils.ErrConfig, job.JobType))
	}
	s.setMessage(id, fmt.Sprintf("Validating %s", job.URL))
	if err := downloader.ValidateJob(job); err != nil {
		return utils.Failed(fmt.Errorf("validation failed: %w", err))
	}
	s.setMessage(id, fmt.Sprintf("Probing %s", job.URL))
	if err := downloader.BuildJob(ctx, job); err != nil {
		return utils.Failed(err)
	}
	job.OutputPath = s.claim(job.OutputPath)
	logger.Debug().Str("output", job.OutputPath).Msg("Output path claimed")

	if s.cfg.Output != nil {
		s.cfg.Output.SetLabel(id, job.OutputPath)
		s.cfg.Output.Start(id)
		job.ProgressFunc = func(downloaded, total int64) {
			s.cfg.Output.UpdateProgress(id, downloaded, total)
		}
	}
	s.setMessage(id, fmt.Sprintf("Downloading %s", job.OutputPath))
	return downloader.Download(ctx, job)
}

// claim reserves path for this run. Two targets resolving to the same path
// get distinct "name-(n).ext" files instead of clobbering each other.
func (s *scheduler) claim(path string) string {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()
	if s.claimed[path] {
		renewed := utils.RenewOutputPath(path, func(p string) bool { return s.claimed[p] })
		log.Warn().Str("op", "scheduler/claim").Str("path", path).Str("renamed", renewed).Msg("Output path already used in this run")
		path = renewed
	}
	s.claimed[path] = true
	return path
}

func (s *scheduler) setMessage(id int, message string) {
	if s.cfg.Output != nil {
		s.cfg.Output.SetMessage(id, message)
	}
}

func (s *scheduler) finish(id int, job *utils.RgetJob, result Result) {
	if s.cfg.Output == nil {
		return
	}
	outcome := result.Outcome
	switch outcome.Kind {
	case utils.OutcomeCompleted:
		s.cfg.Output.Complete(id, fmt.Sprintf("Completed %s", job.OutputPath), outcome.Bytes, result.Elapsed)
	case utils.OutcomeSkipped:
		s.cfg.Output.Skip(id, fmt.Sprintf("Skipped %s: %s", job.OutputPath, outcome.Reason))
	default:
		s.cfg.Output.ReportError(id, outcome.Err)
	}
}
