package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/loykin/adorun"
	"github.com/loykin/adorun/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs from the run-history store",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		if v.GetBool("no_store") {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Store is disabled - no run history available")
			return err
		}
		doc, err := loadConfig(v)
		if err != nil {
			return err
		}
		if err := doc.SetupLogging(); err != nil {
			return err
		}
		cfg := doc.Store
		// Use default SQLite store if no store config provided
		if !cfg.Enabled() {
			cfg.Type = "sqlite"
			cfg.SQLite.Path = constants.DefaultStoreFileName
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := adorun.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if id := v.GetInt64("history_run"); id > 0 {
			items, err := st.RunItems(ctx, id)
			if err != nil {
				return err
			}
			return printRunItems(cmd.OutOrStdout(), items)
		}
		runs, err := st.ListRuns(ctx, v.GetInt("history_limit"))
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

func printRuns(w io.Writer, runs []adorun.StoreRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tOPERATION\tITEMS\tFAILED\tSTATUS\tSTARTED\tDURATION")
	for _, r := range runs {
		status := "ok"
		if r.Aborted {
			status = "aborted"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s.%s\t%d\t%d\t%s\t%s\t%s\n",
			r.ID, r.Resource, r.Operation, r.ItemCount, r.Failed, status,
			r.StartedAt.Local().Format(time.DateTime), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	return tw.Flush()
}

type recordedItem struct {
	Index  int            `json:"index"`
	Failed bool           `json:"failed,omitempty"`
	JSON   map[string]any `json:"json"`
}

func printRunItems(w io.Writer, items []adorun.StoreItem) error {
	out := make([]recordedItem, 0, len(items))
	for _, it := range items {
		out = append(out, recordedItem{Index: it.Index, Failed: it.Failed, JSON: it.Output})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
