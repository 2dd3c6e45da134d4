package rgethttp

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tanq16/rget/internal/ratelimit"
	"github.com/tanq16/rget/internal/utils"
)

// HTTPDownloader is the single-file download engine. One instance is shared
// by every job of a run so they all draw from the same Limiter.
type HTTPDownloader struct {
	Limiter *ratelimit.Limiter
}

func NewHTTPDownloader(limiter *ratelimit.Limiter) *HTTPDownloader {
	return &HTTPDownloader{Limiter: limiter}
}

func (d *HTTPDownloader) ValidateJob(job *utils.RgetJob) error {
	parsedURL, err := url.Parse(job.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("invalid URL: missing host in %q", job.URL)
	}
	if job.Connections < 1 {
		job.Connections = 1
	}
	return nil
}

// BuildJob probes the server and settles the output path: an explicit path
// wins, then the Content-Disposition filename, then the URL basename. The
// probing client is kept on the job for Download to reuse.
func (d *HTTPDownloader) BuildJob(ctx context.Context, job *utils.RgetJob) error {
	job.HTTPClientConfig.HighThreadMode = job.Connections > 5
	client := utils.NewRgetHTTPClient(job.HTTPClientConfig)

	caps, err := Probe(ctx, client, job.URL)
	if err != nil {
		client.CloseIdleConnections()
		return err
	}
	if job.OutputPath == "" {
		job.OutputPath = caps.FileName
	}
	if job.OutputPath == "" {
		job.OutputPath = utils.FileNameFromURL(job.URL)
	}
	if job.OutputPath == "" {
		job.OutputPath = "download"
	}
	if job.Metadata == nil {
		job.Metadata = make(map[string]any)
	}
	job.Metadata["capabilities"] = caps
	job.Metadata["client"] = client
	return nil
}
