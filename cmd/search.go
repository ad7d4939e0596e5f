package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/alccalc/internal/catalog"
	"github.com/matheuskafuri/alccalc/internal/feed"
	"github.com/matheuskafuri/alccalc/internal/imagecache"
	"github.com/matheuskafuri/alccalc/internal/opener"
	"github.com/matheuskafuri/alccalc/internal/query"
	"github.com/spf13/cobra"
)

// openImage shows a downloaded product image. Replaced in tests.
var openImage = opener.Open

var (
	colorMatch = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorDim   = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
)

func runSearch(cmd *cobra.Command, args []string, f searchFlags) error {
	opts, err := searchOptions(args, f)
	if err != nil {
		return err
	}
	// Reject bad options before touching the network.
	if _, err := query.Search(nil, opts); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var articles catalog.Catalog
	if f.refresh {
		articles, err = a.manager.Refresh(ctx)
	} else {
		articles, err = a.manager.EnsureFresh(ctx)
	}
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	res, err := query.Search(articles, opts)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		a.logger.Warn(w.Error())
	}

	printResults(cmd.OutOrStdout(), res)
	a.logger.Debug("search done", "terms", len(opts.Terms), "articles", len(articles), "matches", len(res.Matches))

	outFile := a.cfg.OutFile
	if f.out != "" {
		outFile = f.out
	}
	if outFile != "" {
		if err := writeResults(outFile, res); err != nil {
			return err
		}
		a.logger.Info("results written", "path", outFile, "matches", len(res.Matches))
	}

	if f.pic {
		return showImages(cmd, a, res)
	}
	return nil
}

func searchOptions(args []string, f searchFlags) (query.Options, error) {
	opts := query.Options{
		Terms:  args,
		SortBy: f.sort,
		Limit:  f.limit,
		Regex:  f.regex,
	}
	if f.sortDesc != "" {
		opts.SortBy = f.sortDesc
		opts.Descending = true
	}
	for _, raw := range f.min {
		filter, err := parseBound(query.Min, raw)
		if err != nil {
			return opts, err
		}
		opts.Filters = append(opts.Filters, filter)
	}
	for _, raw := range f.max {
		filter, err := parseBound(query.Max, raw)
		if err != nil {
			return opts, err
		}
		opts.Filters = append(opts.Filters, filter)
	}
	return opts, nil
}

// parseBound reads a FIELD=VALUE filter argument.
func parseBound(bound query.Bound, raw string) (query.Filter, error) {
	field, value, ok := strings.Cut(raw, "=")
	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)
	if !ok || field == "" || value == "" {
		return query.Filter{}, fmt.Errorf("invalid --%s value %q: want FIELD=VALUE", bound, raw)
	}
	return query.Filter{Bound: bound, Field: field, Value: value}, nil
}

func printResults(w io.Writer, res query.Result) {
	r := lipgloss.NewRenderer(w)
	match := r.NewStyle().Foreground(colorMatch)
	dim := r.NewStyle().Foreground(colorDim)

	if len(res.Matches) == 0 {
		fmt.Fprintln(w, dim.Render("No matches."))
		return
	}
	for _, line := range res.Lines() {
		fmt.Fprintln(w, match.Render(line))
	}
}

func writeResults(path string, res query.Result) error {
	var b strings.Builder
	for _, line := range res.Lines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

// showImages downloads and opens the image of every matched article once.
// Products without an image only produce a warning.
func showImages(cmd *cobra.Command, a *app, res query.Result) error {
	images := imagecache.New(a.cfg.ImageDirectory(), a.fetcher, a.logger)
	seen := make(map[string]bool)
	for _, m := range res.Matches {
		stock := m.Article.StockNumber
		if seen[stock] {
			continue
		}
		seen[stock] = true

		path, _, err := images.Get(cmd.Context(), stock)
		if errors.Is(err, feed.ErrNotFound) {
			a.logger.Warn("no image", "product", m.Article.FullName(), "stock_number", stock)
			continue
		}
		if err != nil {
			return fmt.Errorf("fetching image for %s: %w", stock, err)
		}
		if err := openImage(path); err != nil {
			a.logger.Warn("could not show image", "path", path, "err", err)
		}
	}
	return nil
}
