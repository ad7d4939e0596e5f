// Package imagecache keeps product images on disk, one JPEG per stock number.
package imagecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
)

const (
	maxDimension = 800
	jpegQuality  = 80
)

// ErrStorage wraps failures writing images to disk.
var ErrStorage = errors.New("image storage error")

// Fetcher downloads the image for a product identifier.
type Fetcher interface {
	FetchImage(ctx context.Context, id string) ([]byte, error)
}

type Cache struct {
	dir     string
	fetcher Fetcher
	logger  *log.Logger
}

func New(dir string, fetcher Fetcher, logger *log.Logger) *Cache {
	return &Cache{dir: dir, fetcher: fetcher, logger: logger}
}

// Path returns where the image for stockNumber is kept.
func (c *Cache) Path(stockNumber string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(stockNumber)
	return filepath.Join(c.dir, name+".jpg")
}

// Get returns the on-disk path of the image for stockNumber, downloading it
// first if it is not already present. The bool reports whether a download
// happened.
func (c *Cache) Get(ctx context.Context, stockNumber string) (string, bool, error) {
	path := c.Path(stockNumber)
	if _, err := os.Stat(path); err == nil {
		c.logger.Debug("image already cached", "path", path)
		return path, false, nil
	}

	data, err := c.fetcher.FetchImage(ctx, stockNumber)
	if err != nil {
		return "", false, err
	}
	if err := c.save(path, shrink(data, c.logger)); err != nil {
		return "", false, err
	}
	c.logger.Debug("image saved", "path", path, "bytes", len(data))
	return path, true, nil
}

func (c *Cache) save(path string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating image dir: %v: %w", err, ErrStorage)
	}
	tmp, err := os.CreateTemp(c.dir, ".img-*")
	if err != nil {
		return fmt.Errorf("creating temp image: %v: %w", err, ErrStorage)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing image: %v: %w", err, ErrStorage)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing image: %v: %w", err, ErrStorage)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("storing image: %v: %w", err, ErrStorage)
	}
	return nil
}

// shrink re-encodes data as a JPEG no larger than maxDimension on either
// side. Bytes that do not decode as an image are kept as downloaded.
func shrink(data []byte, logger *log.Logger) []byte {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		logger.Debug("keeping image as downloaded", "err", err)
		return data
	}

	b := img.Bounds()
	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	} else if format == "jpeg" {
		return data
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		logger.Debug("keeping image as downloaded", "err", err)
		return data
	}
	return buf.Bytes()
}
