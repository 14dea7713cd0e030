// Package localfs is an upload.Transport that stores files in a local
// directory. It backs the CLI and integration tests.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reoring/formflow/upload"
)

const chunkSize = 32 * 1024

// Transport writes each file of a batch into Dir concurrently. A failure on
// any file removes the files already written for the batch and fails it.
type Transport struct {
	dir         string
	baseURL     string
	concurrency int
	log         *zap.Logger
}

type Option func(*Transport)

// WithBaseURL sets the prefix of returned URLs. The default is a file://
// URL of the directory.
func WithBaseURL(u string) Option {
	return func(t *Transport) { t.baseURL = u }
}

// WithConcurrency bounds concurrent writes per batch (default 4).
func WithConcurrency(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.log = l
		}
	}
}

// New creates the transport. The directory is created on first upload.
func New(dir string, opts ...Option) (*Transport, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("localfs: %w", err)
	}
	t := &Transport{dir: abs, concurrency: 4, log: zap.NewNop()}
	for _, o := range opts {
		o(t)
	}
	if t.baseURL == "" {
		t.baseURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return t, nil
}

// Dir returns the absolute target directory.
func (t *Transport) Dir() string { return t.dir }

var _ upload.Transport = (*Transport)(nil)

func (t *Transport) Upload(ctx context.Context, files []upload.RawFile, progress upload.ProgressFunc) ([]string, error) {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: %w", err)
	}
	names := make([]string, len(files))
	urls := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, f := range files {
		g.Go(func() error {
			name, err := storedName(f.Name)
			if err != nil {
				return err
			}
			if err := t.write(gctx, f, name, func(pct int) {
				if progress != nil {
					progress(i, pct)
				}
			}); err != nil {
				return fmt.Errorf("localfs: %s: %w", f.Name, err)
			}
			names[i] = name
			u, err := url.JoinPath(t.baseURL, name)
			if err != nil {
				return fmt.Errorf("localfs: %w", err)
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, n := range names {
			if n != "" {
				_ = os.Remove(filepath.Join(t.dir, n))
			}
		}
		t.log.Warn("localfs batch failed", zap.Int("files", len(files)), zap.Error(err))
		return nil, err
	}
	t.log.Debug("localfs batch stored", zap.Int("files", len(files)), zap.String("dir", t.dir))
	return urls, nil
}

// storedName prefixes the base name with a short random tag so concurrent
// uploads of the same name do not collide.
func storedName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "", fmt.Errorf("localfs: invalid file name %q", name)
	}
	return uuid.NewString()[:8] + "-" + base, nil
}

func (t *Transport) write(ctx context.Context, f upload.RawFile, name string, report func(int)) (err error) {
	if f.Open == nil {
		return errors.New("no content")
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(t.dir, ".upload-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				return werr
			}
			written += int64(n)
			if f.Size > 0 {
				report(int(min(written*100/f.Size, 99)))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(t.dir, name)); err != nil {
		return err
	}
	report(100)
	return nil
}
