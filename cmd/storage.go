package cmd

import (
	"fmt"
	"time"

	"github.com/matheuskafuri/alccalc/internal/cache"
	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download and parse the assortment feed now",
		Long: `Download the assortment feed regardless of its age and rebuild the parsed
catalog. The previous feed and catalog are kept if the download fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			articles, err := a.manager.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("refreshing: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog refreshed: %d article(s).\n", len(articles))
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.manager.State()
			if err != nil {
				return fmt.Errorf("reading feed state: %w", err)
			}
			dbPath := a.cfg.CatalogPath()
			count, size, err := a.store.Stats(dbPath)
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Feed: %s\n", a.cfg.RawFeedPath())
			if st.RawExists {
				fresh := "fresh"
				if !st.RawFresh {
					fresh = "stale"
				}
				fmt.Fprintf(out, "Feed age: %s (%s, max %s)\n", formatDuration(time.Since(st.RawModTime)), fresh, formatDuration(cache.StaleAfter))
			} else {
				fmt.Fprintln(out, "Feed age: not downloaded")
			}
			fmt.Fprintf(out, "Cache: %s\n", dbPath)
			fmt.Fprintf(out, "Articles: %d\n", count)
			if st.RawExists && !st.ParsedValid {
				fmt.Fprintln(out, "Catalog: outdated, will be rebuilt on next search")
			}
			fmt.Fprintf(out, "Size: %s\n", formatBytes(size))
			return nil
		},
	}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
