package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/monitor"
	"github.com/doha-kr/siteaudit/internal/report"
)

var (
	historyKind      string
	historyDiffKind  string
	historyLimit     int
	historySince     string
	historyFormat    string
	historyOlderThan string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		filter := history.Filter{Kind: report.Kind(historyKind), Limit: historyLimit}
		if historySince != "" {
			d, err := parseAge(historySince)
			if err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			since := time.Now().Add(-d)
			filter.Since = &since
		}
		runs, err := store.List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		t := report.NewTable(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Kind", "Started", "Errors", "Warnings", "Info", "Changes", "Score", "Target"})
		for _, r := range runs {
			score := "-"
			if r.Score != nil {
				score = fmt.Sprintf("%.0f%%", *r.Score)
			}
			t.AppendRow(table.Row{r.ID[:8], r.Kind, r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.Errors, r.Warnings, r.Infos, r.Changes, score, r.Target})
		}
		t.Render()
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		r, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		switch historyFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		case "markdown":
			fmt.Print(report.RenderMarkdown(r))
		default:
			report.RenderTable(os.Stdout, r, 0)
			if r.Notes != "" {
				fmt.Println()
				fmt.Println(r.Notes)
			}
		}
		return nil
	},
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff [old-id new-id]",
	Short: "Show findings introduced and resolved between two runs",
	Long:  `Compares two runs by finding fingerprint. Without ids, the two latest runs of --kind are compared.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected zero or two run ids, got %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()
		oldID, newID := "", ""
		if len(args) == 2 {
			oldID, newID = args[0], args[1]
		} else {
			kind := report.Kind(historyDiffKind)
			runs, err := store.List(ctx, history.Filter{Kind: kind, Limit: 2})
			if err != nil {
				return err
			}
			if len(runs) < 2 {
				return fmt.Errorf("need two %s runs to compare, found %d", kind, len(runs))
			}
			oldID, newID = runs[1].ID, runs[0].ID
		}

		d, err := store.Diff(ctx, oldID, newID)
		if err != nil {
			return err
		}
		newer, err := store.Get(ctx, d.NewID)
		if err != nil {
			return err
		}
		monitor.WriteDelta(os.Stdout, newer, *d)
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		age, err := parseAge(historyOlderThan)
		if err != nil {
			return fmt.Errorf("--older-than: %w", err)
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		n, err := store.Prune(cmd.Context(), time.Now().Add(-age))
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d run(s).\n", n)
		return nil
	},
}

// parseAge accepts Go durations plus a "d" suffix for days, e.g. "30d".
func parseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	return d, nil
}

func init() {
	historyListCmd.Flags().StringVar(&historyKind, "kind", "", "only runs of this kind")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum runs to list")
	historyListCmd.Flags().StringVar(&historySince, "since", "", "only runs started within this age, e.g. 7d or 12h")
	historyShowCmd.Flags().StringVar(&historyFormat, "format", "table", "output format: table, json or markdown")
	historyDiffCmd.Flags().StringVar(&historyDiffKind, "kind", "scan", "run kind compared when no ids are given")
	historyPruneCmd.Flags().StringVar(&historyOlderThan, "older-than", "90d", "delete runs started before this age")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDiffCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
