package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// StyleSummary is a style as listed by the CLI.
type StyleSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Class        string `json:"class"`
	Bibliography bool   `json:"bibliography"`
}

// NewStylesCommand creates the styles command group.
func NewStylesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List and install citation styles",
	}
	cmd.AddCommand(newStylesListCommand(rootOpts))
	cmd.AddCommand(newStylesInstallCommand(rootOpts))
	return cmd
}

func newStylesListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List available styles",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			lib, err := rootOpts.openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			var text strings.Builder
			var out []StyleSummary
			for _, s := range lib.styles.List() {
				sum := StyleSummary{ID: s.ID, Title: s.Title, Class: s.Class, Bibliography: s.HasBibliography()}
				out = append(out, sum)
				fmt.Fprintf(&text, "%s\t%s\t%s\n", sum.ID, sum.Class, sum.Title)
			}
			return rootOpts.formatter(cmd).Success(out, text.String())
		},
	}
}

func newStylesInstallCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install <style-id>",
		Short: "Fetch a style and store it in the database",
		Long: `Fetch the CUE source of a style from its id and store it in the
database, so documents using it no longer ask to install it.

Example:
  citesync styles install https://example.org/styles/waterbirds`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			lib, err := rootOpts.openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			if !lib.installer.Trusted(args[0]) {
				rootOpts.formatter(cmd).VerboseLog("installing style from untrusted origin %s", args[0])
			}
			s, err := lib.installer.Install(ctx, args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to install style", err)
			}
			sum := StyleSummary{ID: s.ID, Title: s.Title, Class: s.Class, Bibliography: s.HasBibliography()}
			return rootOpts.formatter(cmd).Success(sum, fmt.Sprintf("installed %s (%s)\n", sum.ID, sum.Title))
		},
	}
}
