package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"mldash/adapters/api"
	"mldash/domain/core"
	"mldash/internal/browse"
	"mldash/internal/config"
	"mldash/internal/logging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type cliEnv struct {
	client *api.Client
	opts   browse.Options
	log    *logrus.Logger
}

func main() {
	_ = godotenv.Load()

	env := &cliEnv{}
	rootCmd := &cobra.Command{
		Use:   "mldash-cli",
		Short: "Browse and export datasets from the ML backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			env.log = logging.NewLogger(cfg.Log.Level)
			env.client = api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, env.log)
			env.opts = browse.OptionsFromConfig(cfg.Browse)
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newDatasetsCmd(env),
		newBrowseCmd(env),
		newExportCmd(env),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, api.MessageOf(err))
		os.Exit(1)
	}
}

func newDatasetsCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List uploaded datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := env.client.ListDatasets(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILE\tROWS\tCOLUMNS\tSTATUS")
			for _, ds := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", ds.ID, ds.FileName, ds.Rows, ds.Columns, ds.Status)
			}
			return tw.Flush()
		},
	}
}

// selection holds the flags shared by browse and export
type selection struct {
	more       int
	search     string
	page       int
	columns    []string
	allColumns bool
}

func (sel *selection) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&sel.more, "more", 0, "Load this many extra windows after the first")
	cmd.Flags().StringVar(&sel.search, "search", "", "Filter loaded rows by case-insensitive substring")
	cmd.Flags().IntVar(&sel.page, "page", 1, "Page to show in search mode")
	cmd.Flags().StringSliceVar(&sel.columns, "columns", nil, "Columns to show, comma separated")
	cmd.Flags().BoolVar(&sel.allColumns, "all-columns", false, "Show every column")
}

// open loads dataset id into a fresh session and applies the selection
func (sel *selection) open(ctx context.Context, env *cliEnv, id string) (*browse.Session, error) {
	datasetID, err := core.ParseDatasetID(id)
	if err != nil {
		return nil, err
	}
	session := browse.NewSession(env.client, env.opts, env.log)
	if err := session.SwitchDataset(ctx, datasetID); err != nil {
		return nil, err
	}
	for i := 0; i < sel.more; i++ {
		if !session.View().CanLoadMore {
			break
		}
		if err := session.LoadMore(ctx); err != nil {
			return nil, err
		}
	}

	switch {
	case sel.allColumns:
		if !session.View().AllColumnsShown {
			session.ToggleAllColumns()
		}
	case len(sel.columns) > 0:
		applyColumns(session, sel.columns)
	}

	if sel.search != "" {
		session.SetSearchTerm(sel.search)
		session.GoToPage(sel.page)
	}
	return session, nil
}

// applyColumns toggles columns until exactly want are visible
func applyColumns(session *browse.Session, want []string) {
	wanted := make(map[string]bool, len(want))
	for _, c := range want {
		wanted[strings.TrimSpace(c)] = true
	}
	view := session.View()
	visible := make(map[string]bool, len(view.VisibleColumns))
	for _, c := range view.VisibleColumns {
		visible[c] = true
	}
	for _, c := range view.Columns {
		if wanted[c] != visible[c] {
			session.ToggleColumn(c)
		}
	}
}

func newBrowseCmd(env *cliEnv) *cobra.Command {
	sel := &selection{}
	cmd := &cobra.Command{
		Use:   "browse <dataset-id>",
		Short: "Print the loaded rows of a dataset",
		Long: `Print a dataset the way the dashboard shows it.

Example: mldash-cli browse 3f1d2c4b --more 2 --search madrid --page 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := sel.open(cmd.Context(), env, args[0])
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), session.View())
		},
	}
	sel.register(cmd)
	return cmd
}

func newExportCmd(env *cliEnv) *cobra.Command {
	sel := &selection{}
	var format, out string
	cmd := &cobra.Command{
		Use:   "export <dataset-id>",
		Short: "Export the filtered rows of a dataset as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := browse.ParseExportFormat(format)
			if err != nil {
				return err
			}
			session, err := sel.open(cmd.Context(), env, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = session.ExportFilename(exportFormat)
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := session.Export(f, exportFormat); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(session.FilteredRows()), out)
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "Export format: csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default datos_filtrados_<date>.<ext>)")
	return cmd
}

func printView(w io.Writer, v browse.View) error {
	switch v.State {
	case browse.StateNoData:
		_, err := fmt.Fprintln(w, "No data available")
		return err
	case browse.StateNoMatches:
		_, err := fmt.Fprintf(w, "No rows match %q\n", v.SearchTerm)
		return err
	case browse.StateLoadFailed:
		_, err := fmt.Fprintf(w, "Load failed: %s\n", v.Error)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(v.VisibleColumns, "\t"))
	for _, cells := range v.Cells {
		texts := make([]string, len(cells))
		for i, c := range cells {
			texts[i] = c.String()
		}
		fmt.Fprintln(tw, strings.Join(texts, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	if v.Mode == browse.ModeSearch {
		fmt.Fprintf(w, "%d matches in %d loaded rows, page %d of %d\n", v.FilteredCount, v.LoadedRows, v.CurrentPage, v.TotalPages)
	} else {
		fmt.Fprintf(w, "Showing %d of %d rows", len(v.Cells), v.PreviewRows)
		if v.HasMoreData {
			fmt.Fprint(w, " (use --more to load more)")
		}
		fmt.Fprintln(w)
	}
	if hidden := len(v.Columns) - len(v.VisibleColumns); hidden > 0 {
		fmt.Fprintf(w, "%d columns hidden (use --all-columns)\n", hidden)
	}
	return nil
}
