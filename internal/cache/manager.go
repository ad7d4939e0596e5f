package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/matheuskafuri/alccalc/internal/catalog"
	"golang.org/x/sync/singleflight"
)

// StaleAfter is how old the raw feed may get before it is downloaded again.
const StaleAfter = 15 * 24 * time.Hour

// Fetcher downloads the raw assortment document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// State describes persisted freshness.
type State struct {
	RawExists   bool
	RawModTime  time.Time
	RawFresh    bool
	ParsedValid bool
}

// Manager owns the raw feed file and the parsed catalog store. It fetches
// and parses only when the persisted state requires it.
//
// Concurrent callers of EnsureFresh share one in-flight refresh.
type Manager struct {
	rawPath string
	store   *Store
	fetcher Fetcher
	logger  *log.Logger
	now     func() time.Time

	group singleflight.Group
	mu    sync.Mutex
}

func NewManager(rawPath string, store *Store, fetcher Fetcher, logger *log.Logger) *Manager {
	return &Manager{
		rawPath: rawPath,
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// State inspects the raw feed and the stored catalog.
func (m *Manager) State() (State, error) {
	var st State
	info, err := os.Stat(m.rawPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return st, nil
	case err != nil:
		return st, fmt.Errorf("stat raw feed: %v: %w", err, ErrStorage)
	}
	st.RawExists = true
	st.RawModTime = info.ModTime()
	st.RawFresh = m.now().Sub(st.RawModTime) < StaleAfter

	source, ok, err := m.store.SourceModTime()
	if err != nil {
		return st, err
	}
	st.ParsedValid = ok && source.Equal(st.RawModTime)
	return st, nil
}

// EnsureFresh brings the persisted catalog up to date and returns it as
// reloaded from storage.
func (m *Manager) EnsureFresh(ctx context.Context) (catalog.Catalog, error) {
	return m.do(ctx, "ensure", false)
}

// Refresh downloads and parses the feed regardless of its age.
func (m *Manager) Refresh(ctx context.Context) (catalog.Catalog, error) {
	return m.do(ctx, "refresh", true)
}

func (m *Manager) do(ctx context.Context, key string, force bool) (catalog.Catalog, error) {
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.ensure(ctx, force)
	})
	if err != nil {
		return nil, err
	}
	return v.(catalog.Catalog), nil
}

func (m *Manager) ensure(ctx context.Context, force bool) (catalog.Catalog, error) {
	st, err := m.State()
	if err != nil {
		return nil, err
	}

	switch {
	case force || !st.RawFresh:
		if st.RawExists && !force {
			m.logger.Info("raw feed is stale, downloading", "age", m.now().Sub(st.RawModTime).Round(time.Second), "max_age", StaleAfter)
		} else {
			m.logger.Info("downloading feed")
		}
		if err := m.download(ctx); err != nil {
			return nil, err
		}
		if err := m.reparse(); err != nil {
			return nil, err
		}
	case !st.ParsedValid:
		m.logger.Info("parsed catalog missing or outdated, parsing raw feed", "path", m.rawPath)
		if err := m.reparse(); err != nil {
			return nil, err
		}
	}

	articles, err := m.store.LoadCatalog()
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// download fetches the feed and replaces the raw file. The old file is left
// in place when either step fails.
func (m *Manager) download(ctx context.Context) error {
	data, err := m.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	m.logger.Debug("feed downloaded", "bytes", len(data))

	dir := filepath.Dir(m.rawPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %v: %w", err, ErrStorage)
	}
	tmp, err := os.CreateTemp(dir, ".sortiment-*.xml")
	if err != nil {
		return fmt.Errorf("creating temp feed file: %v: %w", err, ErrStorage)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing raw feed: %v: %w", err, ErrStorage)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing raw feed: %v: %w", err, ErrStorage)
	}
	if err := os.Rename(tmp.Name(), m.rawPath); err != nil {
		return fmt.Errorf("replacing raw feed: %v: %w", err, ErrStorage)
	}
	return nil
}

func (m *Manager) reparse() error {
	start := time.Now()
	info, err := os.Stat(m.rawPath)
	if err != nil {
		return fmt.Errorf("stat raw feed: %v: %w", err, ErrStorage)
	}
	raw, err := os.ReadFile(m.rawPath)
	if err != nil {
		return fmt.Errorf("reading raw feed: %v: %w", err, ErrStorage)
	}

	res := catalog.ParseDocument(string(raw))
	for _, rej := range res.Rejected {
		m.logger.Debug("dropped record", "reason", rej)
	}
	if len(res.Articles) == 0 {
		m.logger.Warn("feed contained no well-formed records", "rejected", len(res.Rejected))
	}

	if err := m.store.SaveCatalog(res.Articles, info.ModTime()); err != nil {
		return err
	}
	m.logger.Info("catalog parsed", "articles", len(res.Articles), "rejected", len(res.Rejected), "took", time.Since(start).Round(time.Millisecond))
	return nil
}
