package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	u "net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rget/internal/output"
	"github.com/tanq16/rget/internal/utils"
)

var (
	outputPath    string
	resume        bool
	threads       int
	workers       int
	chunkSize     string
	timeout       string
	kaTimeout     time.Duration
	limitRate     string
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	inet4Only     bool
	inet6Only     bool
	headers       []string
	debug         bool
	logToFile     bool
	noProgress    bool
)

var RgetVersion = "dev"

// errRunFailed is returned once at least one target failed; the summary has
// already been printed by then.
var errRunFailed = errors.New("encountered failed download(s)")

var rootCmd = &cobra.Command{
	Use:           "rget [URL...]",
	Short:         "rget is a concurrent HTTP(S) download engine",
	Version:       RgetVersion,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var stdin io.Reader
		if len(args) == 0 {
			if output.IsTerminal(os.Stdin) {
				return fmt.Errorf("%w: no URL given on the command line or stdin", utils.ErrConfig)
			}
			stdin = os.Stdin
		}
		entries, err := ResolveTargets(args, stdin, outputPath)
		if err != nil {
			return err
		}
		return runEntries(cmd.Context(), entries)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			output.PrintError(fmt.Sprintf("Error: %v", err))
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&threads, "threads", "c", 8, "Number of connections per file (above 5 enables high-thread-mode)")
	rootCmd.PersistentFlags().IntVarP(&workers, "parallel-downloads", "w", 1, "Number of files to download in parallel")
	rootCmd.PersistentFlags().BoolVarP(&resume, "resume", "r", false, "Continue a partial download instead of overwriting it")
	rootCmd.PersistentFlags().StringVar(&chunkSize, "chunk-size", "1MB", "Read buffer per connection (eg. 64K, 1M)")
	rootCmd.PersistentFlags().StringVarP(&timeout, "timeout", "t", "30s", "Inactivity timeout (eg. 30, 5s, 2m)")
	rootCmd.PersistentFlags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.PersistentFlags().StringVar(&limitRate, "limit-rate", "0", "Total bandwidth limit in bytes per second across all downloads (eg. 500K, 2M; 0 is unlimited)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", "randomize", "User agent ('randomize' picks a browser user agent)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().BoolVarP(&inet4Only, "inet4-only", "4", false, "Connect over IPv4 only")
	rootCmd.PersistentFlags().BoolVarP(&inet6Only, "inet6-only", "6", false, "Connect over IPv6 only")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "Write logs to "+utils.LogFile+" instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable the live progress display")
	rootCmd.MarkFlagsMutuallyExclusive("inet4-only", "inet6-only")

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (inferred from the server or URL if not provided; single target only)")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
}

// buildHTTPConfig turns the global flags into a client configuration.
func buildHTTPConfig(inactivity time.Duration) (utils.HTTPClientConfig, error) {
	agent := userAgent
	if agent == "randomize" {
		agent = utils.GetRandomUserAgent()
	}
	proxy, user, pass := proxyURL, proxyUsername, proxyPassword
	if proxy != "" {
		parsedProxy, err := u.Parse(proxy)
		if err != nil {
			return utils.HTTPClientConfig{}, fmt.Errorf("%w: invalid proxy URL: %v", utils.ErrConfig, err)
		}
		// auth embedded in the URL moves to the dedicated fields
		if parsedProxy.User != nil && user == "" {
			user = parsedProxy.User.Username()
			if password, set := parsedProxy.User.Password(); set {
				pass = password
			}
			parsedProxy.User = nil
			proxy = parsedProxy.String()
		}
	}
	ipVersion := 0
	if inet4Only {
		ipVersion = 4
	} else if inet6Only {
		ipVersion = 6
	}
	return utils.HTTPClientConfig{
		Timeout:       inactivity,
		KATimeout:     kaTimeout,
		ProxyURL:      proxy,
		ProxyUsername: user,
		ProxyPassword: pass,
		UserAgent:     agent,
		Headers:       utils.ParseHeaderArgs(headers),
		IPVersion:     ipVersion,
	}, nil
}
