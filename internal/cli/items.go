package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/refdb"
)

// ItemsAddOptions holds flags for items add.
type ItemsAddOptions struct {
	*RootOptions
	Title     string
	Authors   []string
	Year      int
	Type      string
	Container string
	URIs      []string
}

// ItemSummary is an item as listed by the CLI.
type ItemSummary struct {
	ID     int64  `json:"id"`
	Key    string `json:"key"`
	URI    string `json:"uri"`
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	Year   string `json:"year,omitempty"`
}

// NewItemsCommand creates the items command group.
func NewItemsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage the reference library",
	}
	cmd.AddCommand(newItemsAddCommand(rootOpts))
	cmd.AddCommand(newItemsListCommand(rootOpts))
	return cmd
}

func newItemsAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ItemsAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item to the library",
		Long: `Add an item to the library.

Authors written "Family, Given" are split into name parts; anything else is
stored as a literal name.

Example:
  citesync items add --title "Waterbirds" --author "Smith, Robert" --year 2019`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItemsAdd(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "item title (required)")
	cmd.Flags().StringArrayVar(&opts.Authors, "author", nil, "author, repeatable")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "year issued")
	cmd.Flags().StringVar(&opts.Type, "type", "", "CSL item type")
	cmd.Flags().StringVar(&opts.Container, "container", "", "container title")
	cmd.Flags().StringArrayVar(&opts.URIs, "uri", nil, "additional URI the item is known by, repeatable")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// parseName reads "Family, Given" or a literal name.
func parseName(s string) csl.Name {
	s = strings.TrimSpace(s)
	family, given, ok := strings.Cut(s, ",")
	if !ok {
		return csl.Name{Literal: s}
	}
	return csl.Name{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
}

func summarize(it refdb.Item) ItemSummary {
	s := ItemSummary{
		ID:    it.ID,
		Key:   it.Key,
		URI:   it.URI,
		Title: it.Data.Title,
		Year:  it.Data.Year(),
	}
	names := make([]string, len(it.Data.Author))
	for i, n := range it.Data.Author {
		names[i] = n.Short()
	}
	s.Author = strings.Join(names, "; ")
	return s
}

func runItemsAdd(ctx context.Context, opts *ItemsAddOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lib, err := opts.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()

	data := csl.Item{
		Type:           opts.Type,
		Title:          opts.Title,
		ContainerTitle: opts.Container,
	}
	for _, a := range opts.Authors {
		data.Author = append(data.Author, parseName(a))
	}
	if opts.Year != 0 {
		data.Issued = &csl.Date{DateParts: [][]int{{opts.Year}}}
	}

	it, err := lib.db.AddItem(ctx, data, opts.URIs...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to add item", err)
	}
	s := summarize(it)
	return opts.formatter(cmd).Success(s, fmt.Sprintf("added item %d (%s) %s\n", s.ID, s.Key, s.URI))
}

func newItemsListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List library items",
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

			items, err := lib.db.List(ctx)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list items", err)
			}
			summaries := make([]ItemSummary, len(items))
			var text strings.Builder
			for i, it := range items {
				summaries[i] = summarize(it)
				s := summaries[i]
				fmt.Fprintf(&text, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Key, s.Author, s.Year, s.Title)
			}
			if len(items) == 0 {
				text.WriteString("No items.\n")
			}
			return rootOpts.formatter(cmd).Success(summaries, text.String())
		},
	}
}
