package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carenav/navigator/internal/domain/alert"
)

var (
	criticalFormat = color.New(color.FgWhite, color.BgRed).SprintFunc()
	warningFormat  = color.New(color.FgYellow).SprintFunc()
	infoFormat     = color.New(color.FgCyan).SprintFunc()
	mutedFormat    = color.New(color.FgHiBlack).SprintFunc()
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect an alert feed without starting the server",
	}
	cmd.PersistentFlags().String("seed", defaultSeed(), "Alert feed YAML file")
	cmd.PersistentFlags().String("now", "", "Evaluate relative times at this RFC3339 instant (default: current time)")
	cmd.PersistentFlags().String("tz", "", "Time zone defining \"today\" (default: the --now offset, else local)")
	cmd.PersistentFlags().Bool("json", false, "Print JSON instead of text")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.AddCommand(alertsListCmd())
	cmd.AddCommand(alertsSummaryCmd())
	return cmd
}

func defaultSeed() string {
	if s := os.Getenv("SEED_FILE"); s != "" {
		return s
	}
	return "config/alerts.seed.yaml"
}

func alertsListCmd() *cobra.Command {
	var q alert.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts with the console's filters and sorting",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, now, err := loadFeedStore(cmd)
			if err != nil {
				return err
			}
			req, err := alert.ParseQuery(q)
			if err != nil {
				return err
			}
			items, err := store.Query(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			return printAlerts(cmd.OutOrStdout(), items, now)
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Search, "search", "", "Match title, patient name or description")
	f.StringVar(&q.Types, "type", "", "Comma-separated types (critical,high,medium,low)")
	f.StringVar(&q.Categories, "category", "", "Comma-separated categories")
	f.StringVar(&q.ShowResolved, "show-resolved", "", "Include resolved alerts (default false)")
	f.StringVar(&q.ShowRead, "show-read", "", "Include read alerts (default true)")
	f.StringVar(&q.From, "from", "", "Earliest timestamp (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&q.To, "to", "", "Latest timestamp (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&q.View, "view", "", "Predefined view: unread, unresolved or critical")
	f.StringVar(&q.SortBy, "sort-by", "", "timestamp, priority or patient (default timestamp)")
	f.StringVar(&q.SortOrder, "sort-order", "", "asc or desc (default desc)")
	return cmd
}

func alertsSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print queue counts and banners",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := loadFeedStore(cmd)
			if err != nil {
				return err
			}
			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			s := alert.Summarize(all, store.Now())
			if asJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			printSummary(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

// loadFeedStore builds an in-memory store from the --seed file.
func loadFeedStore(cmd *cobra.Command) (*alert.Store, time.Time, error) {
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		color.NoColor = true
	}

	now := time.Now()
	if raw, _ := cmd.Flags().GetString("now"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("--now must be RFC3339: %w", err)
		}
		now = t
	}
	if tz, _ := cmd.Flags().GetString("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("--tz: %w", err)
		}
		now = now.In(loc)
	}

	store := alert.NewStore(alert.NewMemoryRepo(), zerolog.Nop())
	store.SetClock(func() time.Time { return now.UTC() })
	store.SetLocation(now.Location())

	path, _ := cmd.Flags().GetString("seed")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := alert.Seed(ctx, store, path); err != nil {
		return nil, time.Time{}, err
	}
	return store, now, nil
}

func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAlerts(w io.Writer, items []*alert.Alert, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCATEGORY\tPATIENT\tTITLE\tRAISED\tSTATE")
	for _, a := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Type, a.Category, a.PatientName, a.Title,
			humanize.RelTime(a.Timestamp, now, "ago", "from now"), state(a))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, mutedFormat(fmt.Sprintf("%d alert(s)", len(items))))
	return err
}

func state(a *alert.Alert) string {
	s := "unread"
	switch {
	case a.IsResolved:
		s = "resolved"
	case a.IsRead:
		s = "read"
	}
	if a.EscalationLevel > 0 {
		s += fmt.Sprintf(", escalated L%d", a.EscalationLevel)
	}
	return s
}

func printSummary(w io.Writer, s alert.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range []struct {
		label string
		n     int
	}{
		{"Critical", s.Critical},
		{"High", s.High},
		{"Today", s.Today},
		{"Unread", s.Unread},
		{"Escalated", s.Escalated},
		{"Resolved", s.Resolved},
		{"Total", s.Total},
	} {
		fmt.Fprintf(tw, "%s\t%s\n", row.label, humanize.Comma(int64(row.n)))
	}
	_ = tw.Flush()

	if len(s.Banners) > 0 {
		fmt.Fprintln(w)
	}
	for _, b := range s.Banners {
		tag := "[" + b.Level + "]"
		switch b.Level {
		case alert.BannerCritical:
			tag = criticalFormat(tag)
		case alert.BannerWarning:
			tag = warningFormat(tag)
		default:
			tag = infoFormat(tag)
		}
		fmt.Fprintf(w, "%s %s\n", tag, b.Message)
	}
}
