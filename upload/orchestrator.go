package upload

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc reports progress (0..100) for the file at index i of the
// batch passed to Transport.Upload.
type ProgressFunc func(i int, percent int)

// Transport moves bytes to remote storage. It returns one URL per file, in
// the order given. Any error fails the whole batch. Timeouts are the
// transport's own concern.
type Transport interface {
	Upload(ctx context.Context, files []RawFile, progress ProgressFunc) ([]string, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, files []RawFile, progress ProgressFunc) ([]string, error)

func (f TransportFunc) Upload(ctx context.Context, files []RawFile, progress ProgressFunc) ([]string, error) {
	return f(ctx, files, progress)
}

// Orchestrator fans claimed files out to the transport and reconciles the
// results into the uploader.
type Orchestrator struct {
	transport   Transport
	batchSize   int
	concurrency int
	log         *zap.Logger
}

// NewOrchestrator builds a standalone orchestrator. Uploaders created with
// New carry their own.
func NewOrchestrator(transport Transport, opts ...Option) *Orchestrator {
	return newOrchestrator(transport, buildOptions(opts))
}

func newOrchestrator(transport Transport, o options) *Orchestrator {
	conc := o.concurrency
	if conc < 1 {
		conc = 1
	}
	return &Orchestrator{transport: transport, batchSize: o.batchSize, concurrency: conc, log: o.log}
}

// UploadMany claims the Idle files among ids (all Idle files of u when ids is
// empty), marking them Uploading as one atomic step, then sends them to the
// transport. URLs are mapped back by position. The returned URLs follow
// claim order and omit files of failed batches; the error is the first batch
// failure. Once every admitted file of u is Success, the bound field receives
// the aggregated value.
func (o *Orchestrator) UploadMany(ctx context.Context, u *Uploader, ids ...string) ([]string, error) {
	if o.transport == nil {
		return nil, ErrNoTransport
	}
	claims, err := u.claimIdle(ids)
	if err != nil {
		return nil, err
	}
	return o.dispatch(ctx, u, claims)
}

func (o *Orchestrator) dispatch(ctx context.Context, u *Uploader, claims []claim) ([]string, error) {
	if len(claims) == 0 {
		return nil, nil
	}
	batches := chunk(claims, o.batchSize)
	results := make([][]string, len(batches))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for bi, batch := range batches {
		g.Go(func() error {
			urls, err := o.send(ctx, u, batch)
			if err != nil {
				u.fail(batch, err.Error())
				o.log.Warn("upload batch failed", zap.Int("batch", bi), zap.Int("files", len(batch)), zap.Error(err))
				return err
			}
			u.succeed(batch, urls)
			results[bi] = urls
			o.log.Debug("upload batch resolved", zap.Int("batch", bi), zap.Int("files", len(batch)))
			return nil
		})
	}
	err := g.Wait()

	var out []string
	for _, urls := range results {
		out = append(out, urls...)
	}
	u.aggregate(ctx)
	return out, err
}

func (o *Orchestrator) send(ctx context.Context, u *Uploader, batch []claim) (urls []string, err error) {
	files := make([]RawFile, len(batch))
	for i, c := range batch {
		files[i] = c.file
	}
	o.log.Debug("upload batch start", zap.Int("files", len(files)))

	// may be called from transport goroutines, even after Upload returned
	progress := func(i, pct int) {
		if i >= 0 && i < len(batch) {
			u.progress(batch[i], pct)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upload: transport panic: %v", r)
		}
	}()
	urls, err = o.transport.Upload(ctx, files, progress)
	if err != nil {
		return nil, err
	}
	if len(urls) != len(files) {
		return nil, fmt.Errorf("upload: transport returned %d urls for %d files", len(urls), len(files))
	}
	return urls, nil
}

func chunk(claims []claim, size int) [][]claim {
	if size <= 0 || size >= len(claims) {
		return [][]claim{claims}
	}
	var out [][]claim
	for start := 0; start < len(claims); start += size {
		end := min(start+size, len(claims))
		out = append(out, claims[start:end])
	}
	return out
}
