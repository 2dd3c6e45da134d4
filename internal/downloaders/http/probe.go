package rgethttp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-http-utils/headers"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rget/internal/utils"
)

// Probe asks the server for the first byte of url to learn the total length
// and whether ranged requests are honoured. Servers that refuse GET probes
// (405/501) are asked again with HEAD. Failures are never retried.
func Probe(ctx context.Context, client utils.HTTPDoer, url string) (Capabilities, error) {
	caps, status, err := probeWith(ctx, client, http.MethodGet, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		log.Debug().Str("op", "http/probe").Int("status", status).Msg("Ranged GET probe refused, retrying with HEAD")
		caps, status, err = probeWith(ctx, client, http.MethodHead, url)
	}
	if err != nil {
		return Capabilities{}, fmt.Errorf("%w: %w", ErrProbe, err)
	}
	if status >= 300 {
		return Capabilities{}, fmt.Errorf("%w: %w", ErrProbe, &StatusError{StatusCode: status, URL: url})
	}
	log.Debug().Str("op", "http/probe").Str("url", url).Int64("length", caps.Length).Bool("ranges", caps.AcceptsRanges).Msg("Probe complete")
	return caps, nil
}

func probeWith(ctx context.Context, client utils.HTTPDoer, method, url string) (Capabilities, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Capabilities{}, 0, fmt.Errorf("error creating %s request: %w", method, err)
	}
	if method == http.MethodGet {
		req.Header.Set(headers.Range, "bytes=0-0")
	}
	resp, err := client.Do(req)
	if err != nil {
		return Capabilities{}, 0, fmt.Errorf("error checking URL: %w", err)
	}
	defer resp.Body.Close()

	caps := Capabilities{
		Length:       -1,
		FileName:     utils.FileNameFromDisposition(resp.Header.Get(headers.ContentDisposition)),
		ETag:         resp.Header.Get(headers.ETag),
		LastModified: resp.Header.Get(headers.LastModified),
	}
	switch resp.StatusCode {
	case http.StatusPartialContent:
		caps.AcceptsRanges = true
		caps.Length = totalFromContentRange(resp.Header.Get(headers.ContentRange))
	case http.StatusRequestedRangeNotSatisfiable:
		// only an empty resource rejects bytes=0-0
		if total := totalFromContentRange(resp.Header.Get(headers.ContentRange)); total == 0 {
			return Capabilities{Length: 0, AcceptsRanges: true, FileName: caps.FileName}, http.StatusOK, nil
		}
	case http.StatusOK:
		caps.AcceptsRanges = strings.EqualFold(resp.Header.Get(headers.AcceptRanges), "bytes")
		if resp.ContentLength >= 0 {
			caps.Length = resp.ContentLength
		}
	}
	return caps, resp.StatusCode, nil
}

// totalFromContentRange parses "bytes 0-0/1234" or "bytes */1234"; -1 when
// the total is absent or "*".
func totalFromContentRange(contentRange string) int64 {
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return -1
	}
	total, err := strconv.ParseInt(strings.TrimSpace(contentRange[idx+1:]), 10, 64)
	if err != nil || total < 0 {
		return -1
	}
	return total
}
