package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/citesync/internal/dialog"
	"github.com/roach88/citesync/internal/host"
	"github.com/roach88/citesync/internal/host/memhost"
	"github.com/roach88/citesync/internal/integration"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	DocID   string
	Cite    []int64
	Style   string
	Answers []int
	Yes     bool
	BibAdd  []int64
	DryRun  bool
}

// ExecResult is the outcome of one document command.
type ExecResult struct {
	DocID   string   `json:"doc_id"`
	Command string   `json:"command"`
	Fields  int      `json:"fields"`
	Dialogs []string `json:"dialogs"`
	Alerts  int      `json:"alerts"`
	Saved   bool     `json:"saved"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <command> <document.yaml>",
		Short: "Run an integration command against a document file",
		Long: `Run one integration command against a document stored as YAML.

Dialogs are answered from flags: --cite picks the items for the citation
dialog, --style answers the document preferences dialog and --bib-add adds
uncited items in the edit bibliography dialog. Prompts are answered in
order from --answer, then with --yes or no.

Commands: ` + strings.Join(integration.Commands, ", ") + `

Example:
  citesync exec addEditCitation paper.yaml --cite 1,2
  citesync exec refresh paper.yaml --yes`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DocID, "doc-id", "", "document id (default: file name without extension)")
	cmd.Flags().Int64SliceVar(&opts.Cite, "cite", nil, "item ids to cite")
	cmd.Flags().StringVar(&opts.Style, "style", "", "style id for the document preferences dialog")
	cmd.Flags().IntSliceVar(&opts.Answers, "answer", nil, "prompt answers in order (0 = cancel/no, 1 = ok/yes)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "answer remaining prompts with ok/yes")
	cmd.Flags().Int64SliceVar(&opts.BibAdd, "bib-add", nil, "item ids to add to the bibliography without citing them")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "do not write the document back")

	return cmd
}

// docIDFor derives a document id from a file name.
func docIDFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// scriptedDialogs answers dialogs from command line flags. Dialogs without
// an answer accept their prefilled values, except the citation dialog,
// which cancels.
func scriptedDialogs(style string, cite, bibAdd []int64, citationDialog string) *dialog.Script {
	s := dialog.NewScript().
		Default(dialog.DocPrefs, dialog.Accept()).
		Default(dialog.EditBibliography, dialog.Accept())
	if style != "" {
		s.Queue(dialog.DocPrefs, dialog.UseStyle(style))
	}
	if len(cite) > 0 {
		s.Queue(citationDialog, dialog.CiteIDs(cite...))
	}
	if len(bibAdd) > 0 {
		ids := append([]int64(nil), bibAdd...)
		s.Queue(dialog.EditBibliography, dialog.Bibliography(func(io *dialog.EditBibliographyIO) {
			io.Add = ids
		}))
	}
	return s
}

func (o *RootOptions) newInterface(lib *library, app host.Application, dialogs dialog.Displayer) *integration.Interface {
	cfg := o.settings()
	return integration.New(app, lib.db, lib.styles, dialogs,
		integration.WithInstaller(lib.installer),
		integration.WithJournal(lib.store),
		integration.WithCitationDialog(cfg.CitationDialog),
		integration.WithDefaultStyle(cfg.DefaultStyle),
		integration.WithSessionIdle(cfg.SessionIdle),
	)
}

func runExec(ctx context.Context, opts *ExecOptions, command, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	if !integration.ValidCommand(command) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown command %q: must be one of %v", command, integration.Commands))
	}

	doc, err := memhost.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load document", err)
	}
	docID := opts.DocID
	if docID == "" {
		docID = docIDFor(path)
	}

	lib, err := opts.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()

	app := memhost.NewApplication()
	app.Add(docID, doc)
	doc.QueueAnswers(opts.Answers...)
	if opts.Yes {
		doc.SetDefaultAnswer(host.ResultYes)
	}

	dialogs := scriptedDialogs(opts.Style, opts.Cite, opts.BibAdd, opts.settings().CitationDialog)
	iface := opts.newInterface(lib, app, dialogs)
	defer iface.Close()

	out.VerboseLog("running %s on %s", command, docID)
	execErr := iface.Exec(ctx, command, docID)
	printAlerts(out.GetErrWriter(), docID, doc.Alerts())

	result := ExecResult{
		DocID:   docID,
		Command: command,
		Fields:  doc.Len(),
		Dialogs: dialogs.Calls(),
		Alerts:  len(doc.Alerts()),
	}
	if result.Dialogs == nil {
		result.Dialogs = []string{}
	}

	if execErr != nil {
		if err := out.CommandError(execErr, result); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, command+" failed", execErr)
	}

	if !opts.DryRun {
		if err := doc.Save(path); err != nil {
			return WrapExitError(ExitCommandError, "failed to save document", err)
		}
		result.Saved = true
	}

	return out.Success(result, fmt.Sprintf("%s %s: ok (%d fields)\n", command, docID, result.Fields))
}
