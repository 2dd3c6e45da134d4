package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/rget/internal/output"
	"github.com/tanq16/rget/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [DIR]",
		Short: "Remove the " + utils.LogFile + " debug log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			if err := utils.CleanLogFile(dir); err != nil {
				return fmt.Errorf("error cleaning log file: %w", err)
			}
			output.PrintInfo("Log file cleaned up")
			return nil
		},
	}
}
