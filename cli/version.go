package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Version and Commit are set at build time with -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Long:  `Print the version of asgd.`,
		Run: func(cmd *cobra.Command, _ []string) {
			logJSONCmd(*cmd, map[string]string{
				"version": Version,
				"commit":  Commit,
				"go":      runtime.Version(),
			})
		},
	}
}
