package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "journal [doc-id]",
		Short: "Show the command journal",
		Long: `Show the journal of finished commands, for one document or all.

Each record names the command, its status, how many field writes it made,
how many fields it inserted and the citation indices it saw for the first
time.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			docID := ""
			if len(args) == 1 {
				docID = args[0]
			}

			lib, err := rootOpts.openLibrary(ctx)
			if err != nil {
				return err
			}
			defer lib.Close()

			records, err := lib.store.ListJournal(ctx, docID)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read journal", err)
			}

			var text strings.Builder
			for _, r := range records {
				fmt.Fprintf(&text, "%s #%d %s %s writes=%d inserted=%d new=%v\n",
					r.DocID, r.Seq, r.Command, r.Status, r.Writes, r.Inserted, r.NewIndices)
			}
			if len(records) == 0 {
				text.WriteString("No journal records.\n")
			}
			return rootOpts.formatter(cmd).Success(records, text.String())
		},
	}
}
