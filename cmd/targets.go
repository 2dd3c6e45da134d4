package cmd

import (
	"bufio"
	"fmt"
	"io"
	u "net/url"
	"strings"

	"github.com/tanq16/rget/internal/utils"
)

// ResolveTargets turns command-line URLs, or one URL per line of stdin when
// there are none, into download entries. Blank lines and lines starting with
// '#' are ignored. An explicit output path needs exactly one target.
func ResolveTargets(args []string, stdin io.Reader, output string) ([]utils.DownloadEntry, error) {
	urls := args
	if len(urls) == 0 && stdin != nil {
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			urls = append(urls, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("error reading URLs from stdin: %w", err)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no URL provided", utils.ErrConfig)
	}
	if output != "" && len(urls) != 1 {
		return nil, fmt.Errorf("%w: --output requires exactly one URL, got %d", utils.ErrConfig, len(urls))
	}
	entries := make([]utils.DownloadEntry, 0, len(urls))
	for _, link := range urls {
		if err := validateURL(link); err != nil {
			return nil, err
		}
		entries = append(entries, utils.DownloadEntry{URL: link, OutputPath: output})
	}
	return entries, nil
}

func validateURL(link string) error {
	parsed, err := u.Parse(link)
	if err != nil {
		return fmt.Errorf("%w: invalid URL %q: %v", utils.ErrConfig, link, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme in %q (only http and https)", utils.ErrConfig, link)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host in %q", utils.ErrConfig, link)
	}
	return nil
}
