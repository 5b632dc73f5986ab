package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ledgerdesk/internal/core"
	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

// catalogEntry is the JSON form of one collection.
type catalogEntry struct {
	Name          string   `json:"name"`
	Label         string   `json:"label"`
	Group         string   `json:"group"`
	Path          string   `json:"path"`
	Columns       []string `json:"columns"`
	Filters       []string `json:"filters,omitempty"`
	Mutations     []string `json:"mutations,omitempty"`
	ExportFormats []string `json:"exportFormats,omitempty"`
}

func newCatalogCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show the collections the console knows about",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			var entries []catalogEntry
			for _, c := range a.registry.All() {
				e := catalogEntry{
					Name:          c.Name,
					Label:         c.Label,
					Group:         c.Group,
					Path:          c.Path,
					Filters:       c.Filters,
					Mutations:     c.Mutations,
					ExportFormats: c.ExportFormats,
				}
				for _, col := range c.Columns {
					e.Columns = append(e.Columns, col.Key)
				}
				entries = append(entries, e)
			}

			out := cmd.OutOrStdout()
			if opts.JSON {
				return writeJSON(out, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Name, e.Label, e.Group,
					strings.Join(e.Mutations, ","),
					strings.Join(e.ExportFormats, ","),
				})
			}
			return writeTable(out, []string{"NAME", "LABEL", "GROUP", "ACTIONS", "EXPORTS"}, rows)
		},
	}
}

// listOptions holds the flags of list.
type listOptions struct {
	Page     int
	PageSize int
	Search   string
	Filters  []string
	Sort     string
}

// listResult is the JSON form of one page.
type listResult struct {
	Collection string `json:"collection"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
	Stale      bool   `json:"stale,omitempty"`
	Items      any    `json:"items"`
}

func newListCommand(opts *rootOptions) *cobra.Command {
	lo := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "Print one page of a collection",
		Example: `  consolectl list vendors --search acme --sort name:desc
  consolectl list accounts --filter type=asset --page 2 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, lo, args[0])
		},
	}
	cmd.Flags().IntVar(&lo.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&lo.PageSize, "page-size", 0, "rows per page (default: the collection's page size)")
	cmd.Flags().StringVar(&lo.Search, "search", "", "search text")
	cmd.Flags().StringArrayVar(&lo.Filters, "filter", nil, "filter as name=value (repeatable)")
	cmd.Flags().StringVar(&lo.Sort, "sort", "", "sort column, optionally suffixed with :asc or :desc")
	return cmd
}

func runList(cmd *cobra.Command, opts *rootOptions, lo *listOptions, name string) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	coll, err := a.collection(name)
	if err != nil {
		return err
	}

	filters, err := parseFilters(lo.Filters, coll.HasFilter)
	if err != nil {
		return err
	}
	if s := strings.TrimSpace(lo.Search); s != "" {
		if filters == nil {
			filters = map[string]any{}
		}
		filters[listing.SearchFilter] = s
	}

	sort, err := parseSort(lo.Sort)
	if err != nil {
		return err
	}
	if !sort.IsZero() && !sortable(coll.Columns, sort.Column) {
		return usageError("column %q of %s is not sortable", sort.Column, coll.Name)
	}

	size := lo.PageSize
	if size <= 0 {
		size = coll.PageSize
	}
	key := listing.NewKey(coll.Name, lo.Page, size, filters, sort)

	res, err := a.service.List(cmd.Context(), key)
	if err != nil {
		return err
	}
	if res.Err != nil && !res.HasData {
		return fmt.Errorf("list %s: %s", coll.Name, core.UserMessageText(res.Err))
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		return writeJSON(out, listResult{
			Collection: coll.Name,
			Page:       key.Page,
			PageSize:   key.PageSize,
			Total:      res.Page.Total,
			TotalPages: res.Page.TotalPages,
			Stale:      res.Stale,
			Items:      res.Page.Items,
		})
	}

	var headers []string
	var visible []int
	for i, col := range coll.Columns {
		if col.Hidden {
			continue
		}
		headers = append(headers, strings.ToUpper(col.Header))
		visible = append(visible, i)
	}
	rows := make([][]string, 0, len(res.Page.Items))
	for _, rec := range res.Page.Items {
		row := make([]string, 0, len(visible))
		for _, i := range visible {
			row = append(row, coll.Columns[i].CellText(rec))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		fmt.Fprintf(out, "No %s found\n", coll.Label)
		return nil
	}
	if err := writeTable(out, headers, rows); err != nil {
		return err
	}
	pages := res.Page.TotalPages
	if pages == 0 {
		pages = listing.PageCount(res.Page.Total, key.PageSize)
	}
	fmt.Fprintf(out, "\npage %d of %d, %d total\n", key.Page, max(pages, 1), res.Page.Total)
	return nil
}

// exportOptions holds the flags of export.
type exportOptions struct {
	Format  string
	Output  string
	Filters []string
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	eo := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Download a collection as a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, eo, args[0])
		},
	}
	cmd.Flags().StringVar(&eo.Format, "format", "", "export format offered by the collection, e.g. xlsx")
	cmd.Flags().StringVarP(&eo.Output, "output", "o", "", "file to write (default: stdout)")
	cmd.Flags().StringArrayVar(&eo.Filters, "filter", nil, "filter as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("format")
	return cmd
}

func runExport(cmd *cobra.Command, opts *rootOptions, eo *exportOptions, name string) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	coll, err := a.collection(name)
	if err != nil {
		return err
	}
	if !coll.Exports(eo.Format) {
		return usageError("%s cannot be exported as %q (formats: %s)",
			coll.Name, eo.Format, strings.Join(coll.ExportFormats, ", "))
	}
	filters, err := parseFilters(eo.Filters, coll.HasFilter)
	if err != nil {
		return err
	}

	ctx := listing.WithPermissions(cmd.Context(), listing.AllowAll())
	body, _, err := a.service.Export(ctx, coll.Name, eo.Format, filters)
	if err != nil {
		return fmt.Errorf("export %s: %s", coll.Name, core.UserMessageText(err))
	}
	defer body.Close()

	var w io.Writer = cmd.OutOrStdout()
	if eo.Output != "" {
		f, err := os.Create(eo.Output)
		if err != nil {
			return &exitError{code: exitCommandError, err: err}
		}
		defer f.Close()
		w = f
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return fmt.Errorf("export %s: %w", coll.Name, err)
	}
	if eo.Output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", n, eo.Output)
	}
	return nil
}

// mutateOptions holds the flags of mutate.
type mutateOptions struct {
	ID      string
	Version string
	Data    string
}

// mutateResult is the JSON form of an outcome.
type mutateResult struct {
	OK          bool            `json:"ok"`
	Message     string          `json:"message"`
	Failure     listing.Failure `json:"failure,omitempty"`
	Record      any             `json:"record,omitempty"`
	Invalidated []string        `json:"invalidated,omitempty"`
}

func newMutateCommand(opts *rootOptions) *cobra.Command {
	mo := &mutateOptions{}
	cmd := &cobra.Command{
		Use:   "mutate <collection> <create|update|delete|setDefault|toggleStatus>",
		Short: "Create, change or delete a record",
		Example: `  consolectl mutate vendors create --data '{"name":"Acme"}'
  consolectl mutate vendors delete --id 42 --version 7`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutate(cmd, opts, mo, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&mo.ID, "id", "", "record id (required for everything but create)")
	cmd.Flags().StringVar(&mo.Version, "version", "", "expected record version, sent as If-Match")
	cmd.Flags().StringVar(&mo.Data, "data", "", "record fields as a JSON object")
	return cmd
}

func runMutate(cmd *cobra.Command, opts *rootOptions, mo *mutateOptions, name, kindArg string) error {
	kind, ok := listing.ParseMutationKind(kindArg)
	if !ok {
		return usageError("unknown action %q", kindArg)
	}
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	coll, err := a.collection(name)
	if err != nil {
		return err
	}

	intent := listing.Intent{
		Kind:       kind,
		Collection: coll.Name,
		ID:         mo.ID,
		Version:    mo.Version,
	}
	if mo.Data != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(mo.Data), &payload); err != nil {
			return usageError("--data must be a JSON object: %v", err)
		}
		intent.Payload = payload
	}

	ctx := listing.WithPermissions(cmd.Context(), listing.AllowAll())
	ctx = core.ContextWithActor(ctx, "cli")
	out := a.service.Execute(ctx, intent)

	w := cmd.OutOrStdout()
	if opts.JSON {
		if err := writeJSON(w, mutateResult{
			OK:          out.OK,
			Message:     out.Message,
			Failure:     out.Failure,
			Record:      out.Record,
			Invalidated: out.Invalidated,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, out.Message)
		for _, text := range fieldErrors(out.Err) {
			fmt.Fprintln(w, "  -", text)
		}
	}
	if !out.OK {
		return &exitError{code: exitFailure, err: fmt.Errorf("%s %s failed: %s", kind, coll.Name, out.Failure)}
	}
	return nil
}
