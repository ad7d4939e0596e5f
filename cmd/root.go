package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/matheuskafuri/alccalc/internal/update"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// releaseURL is where `version --check` looks for newer releases.
var releaseURL = update.ReleaseURL

var rootCmd = newRootCmd()

// searchFlags holds the flags of the root search command.
type searchFlags struct {
	sort     string
	sortDesc string
	regex    bool
	out      string
	pic      bool
	limit    int
	min      []string
	max      []string
	refresh  bool
}

func newRootCmd() *cobra.Command {
	var f searchFlags

	root := &cobra.Command{
		Use:   "alccalc TERM...",
		Short: "Systembolaget assortment searcher",
		Long: `alccalc searches the Systembolaget assortment and ranks matches by apk
(alcohol per krona: 0.01 * alcohol% * volume ml / price).

The assortment feed is downloaded when missing or older than 15 days and the
parsed catalog is cached locally.`,
		Example: `  alccalc vodka -s apk
  alccalc öl -m alc=5 -M pris=30 -d apk -n 10`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, f)
		},
	}

	root.PersistentFlags().String("config", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "log debug output")

	fl := root.Flags()
	fl.StringVarP(&f.sort, "sort", "s", "", "sort in ascending order by `FIELD` (apk/volume/alcohol/price/name/type)")
	fl.StringVarP(&f.sortDesc, "sortd", "d", "", "sort in descending order by `FIELD`")
	fl.BoolVarP(&f.regex, "re", "r", false, "search using regular expressions")
	fl.StringVarP(&f.out, "out", "o", "", "also write results to `FILE`")
	fl.BoolVarP(&f.pic, "pic", "p", false, "also download and show images for all matches")
	fl.IntVarP(&f.limit, "limit", "n", 0, "return at most `N` results")
	fl.StringArrayVarP(&f.min, "min", "m", nil, "require `FIELD=VALUE` or more (repeatable)")
	fl.StringArrayVarP(&f.max, "max", "M", nil, "require `FIELD=VALUE` or less (repeatable)")
	fl.BoolVar(&f.refresh, "refresh", false, "download the feed before searching regardless of its age")
	root.MarkFlagsMutuallyExclusive("sort", "sortd")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newRefreshCmd())
	root.AddCommand(newStatsCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	var check bool
	c := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "alccalc %s (commit: %s, built: %s)\n", version, commit, date)
			if !check {
				return
			}
			if res := update.Check(cmd.Context(), http.DefaultClient, releaseURL, version); res != nil {
				fmt.Fprintf(out, "A newer version is available: %s\n", res.LatestVersion)
			} else {
				fmt.Fprintln(out, "No newer version found.")
			}
		},
	}
	c.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return c
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
