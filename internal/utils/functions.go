package utils

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
)

var filenameRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-\. ]+`)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

// RenewOutputPath returns the first "name-(n).ext" variant of outputPath for
// which taken reports false.
func RenewOutputPath(outputPath string, taken func(string) bool) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	index := 1
	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s-(%d)%s", name, index, ext))
		if !taken(candidate) {
			return candidate
		}
		index++
	}
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// ParseByteSize accepts plain byte counts or K/M/G suffixed sizes ("500K",
// "2M", "1.5MiB"). Suffixes are binary multiples.
func ParseByteSize(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative size: %s", value)
		}
		return n, nil
	}
	n, err := units.RAMInBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size: %s", value)
	}
	return n, nil
}

// ParseTimeout accepts either a Go duration ("45s", "2m") or a bare number
// of seconds.
func ParseTimeout(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("negative timeout: %s", value)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout: %s", value)
	}
	return d, nil
}

// FileNameFromDisposition extracts a sanitized filename from a
// Content-Disposition header value.
func FileNameFromDisposition(contentDisposition string) string {
	if contentDisposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	if fn, ok := params["filename"]; ok && fn != "" {
		return filenameRegex.ReplaceAllString(filepath.Base(fn), "_")
	}
	if fn, ok := params["filename*"]; ok && strings.HasPrefix(fn, "UTF-8''") {
		unescaped, err := url.PathUnescape(strings.TrimPrefix(fn, "UTF-8''"))
		if err == nil && unescaped != "" {
			return filenameRegex.ReplaceAllString(filepath.Base(unescaped), "_")
		}
	}
	return ""
}

// FileNameFromURL returns the last path segment of link, or "" when the path
// has none.
func FileNameFromURL(link string) string {
	parsedURL, err := url.Parse(link)
	if err != nil {
		return ""
	}
	base := path.Base(parsedURL.Path)
	if base == "/" || base == "." {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return filenameRegex.ReplaceAllString(base, "_")
}

func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	bps := float64(bytes) / elapsed
	return FormatBytes(uint64(bps)) + "/s"
}

// CleanLogFile removes the debug log written by --log-file in dir.
func CleanLogFile(dir string) error {
	logPath := filepath.Join(dir, LogFile)
	err := os.Remove(logPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
