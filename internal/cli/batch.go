package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/citesync/internal/host/memhost"
	"github.com/roach88/citesync/internal/integration"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	Jobs    int
	Command string
	DryRun  bool
}

// BatchFile is the outcome for one document of a batch.
type BatchFile struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Fields int    `json:"fields"`
}

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	Files  []BatchFile `json:"files"`
	Failed int         `json:"failed"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <document.yaml>...",
		Short: "Refresh several document files concurrently",
		Long: `Run one command, refresh by default, against several document files.

Each file is its own document, so the files are processed concurrently while
the commands for any one file stay ordered. Prompts are answered with no.

Example:
  citesync batch chapters/*.yaml --jobs 8`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 4, "documents processed at once")
	cmd.Flags().StringVar(&opts.Command, "command", integration.Refresh, "command to run on every document")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "do not write documents back")

	return cmd
}

func runBatch(ctx context.Context, opts *BatchOptions, paths []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	if !integration.ValidCommand(opts.Command) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown command %q", opts.Command))
	}
	if opts.Jobs < 1 {
		return NewExitError(ExitCommandError, "--jobs must be at least 1")
	}

	lib, err := opts.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()

	app := memhost.NewApplication()
	dialogs := scriptedDialogs("", nil, nil, opts.settings().CitationDialog)
	iface := opts.newInterface(lib, app, dialogs)
	defer iface.Close()

	result := BatchResult{Files: make([]BatchFile, len(paths))}
	var alertMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Jobs)
	for i, path := range paths {
		g.Go(func() error {
			doc, err := memhost.Load(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load "+path, err)
			}
			app.Add(path, doc)

			file := BatchFile{Path: path, Status: integration.StatusOK}
			execErr := iface.Exec(gctx, opts.Command, path)
			iface.CloseDocument(path)

			alertMu.Lock()
			printAlerts(out.GetErrWriter(), path, doc.Alerts())
			alertMu.Unlock()

			file.Fields = doc.Len()
			if execErr != nil {
				file.Status = integration.StatusFailed
				if integration.IsUserCancelled(execErr) {
					file.Status = integration.StatusCancelled
				}
				file.Code = string(integration.CodeOf(execErr))
				file.Error = execErr.Error()
			} else if !opts.DryRun {
				if err := doc.Save(path); err != nil {
					return WrapExitError(ExitCommandError, "failed to save "+path, err)
				}
			}
			result.Files[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var text strings.Builder
	for _, f := range result.Files {
		if f.Status != integration.StatusOK {
			result.Failed++
			fmt.Fprintf(&text, "%s: %s [%s] %s\n", f.Path, f.Status, f.Code, f.Error)
			continue
		}
		fmt.Fprintf(&text, "%s: ok (%d fields)\n", f.Path, f.Fields)
	}
	fmt.Fprintf(&text, "%d documents, %d failed\n", len(result.Files), result.Failed)

	if err := out.Success(result, text.String()); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d documents failed", result.Failed, len(result.Files)))
	}
	return nil
}
