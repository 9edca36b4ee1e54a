package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mejba13/meetverse-ai-sub000/pkg/buildinfo"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return printJSON(buildinfo.Get(serviceName))
			}
			cmd.Println(buildinfo.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print full build info as JSON")
	return cmd
}
