package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/rget/internal/utils"
	"gopkg.in/yaml.v3"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [YAML_FILE] [OPTIONS]",
		Short: "Process multiple downloads from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("%w: error reading YAML file: %v", utils.ErrConfig, err)
			}
			entries, err := parseBatchFile(data)
			if err != nil {
				return err
			}
			return runEntries(cmd.Context(), entries)
		},
	}
}

// parseBatchFile reads a YAML list of {link, op} entries.
func parseBatchFile(data []byte) ([]utils.DownloadEntry, error) {
	var entries []utils.DownloadEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: error parsing YAML file: %v", utils.ErrConfig, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries found in the batch file", utils.ErrConfig)
	}
	for i, entry := range entries {
		if entry.URL == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty link", utils.ErrConfig, i+1)
		}
		if err := validateURL(entry.URL); err != nil {
			return nil, err
		}
	}
	return entries, nil
}
