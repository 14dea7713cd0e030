// Package upload tracks the lifecycle of files selected for one upload field
// and reconciles transport results back into the owning form field.
//
//	Idle -> Uploading -> {Success, Error}
//	Error -> Uploading (Retry)
//	any -> removed (entry deleted)
package upload

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	formflow "github.com/reoring/formflow"
)

var (
	ErrNotFound = errors.New("upload: file not found")
	// ErrNotRetryable is returned by Retry for files that are not in a
	// transport Error state, including files rejected at selection.
	ErrNotRetryable = errors.New("upload: file is not retryable")
	ErrNoTransport  = errors.New("upload: no transport configured")
)

// FieldSink receives the aggregated upload result. *form.Field satisfies it.
type FieldSink interface {
	SetValue(ctx context.Context, v any)
	Clear(ctx context.Context)
}

// Option configures an Uploader and its Orchestrator.
type Option func(*options)

type options struct {
	log         *zap.Logger
	cfg         formflow.Config
	batchSize   int
	concurrency int
	newID       func() string
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithConfig sets the message configuration used for rejection messages.
func WithConfig(cfg formflow.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithBatchSize splits an upload into transport calls of at most n files.
// 0 sends every claimed file in one call.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithConcurrency bounds the number of transport calls in flight per upload.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// WithIDFunc replaces the ID generator (uuid by default).
func WithIDFunc(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), cfg: formflow.DefaultConfig(), concurrency: 1, newID: uuid.NewString}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

type entry struct {
	info     FileInfo
	gen      uint64 // bumped on each claim; resolutions carrying an older gen are dropped
	rejected bool   // admitted into Error at selection
}

// Uploader owns the file list of one upload field.
type Uploader struct {
	mu      sync.Mutex
	c       Constraints
	order   []string
	entries map[string]*entry
	closed  bool

	sinkMu sync.Mutex
	sink   FieldSink

	orch   *Orchestrator
	events *broker
	cfg    formflow.Config
	log    *zap.Logger
	newID  func() string
}

// New creates an uploader for one field. transport may be nil for a
// selection-only uploader; Upload then returns ErrNoTransport.
func New(c Constraints, transport Transport, opts ...Option) *Uploader {
	o := buildOptions(opts)
	return &Uploader{
		c:       c,
		entries: map[string]*entry{},
		orch:    newOrchestrator(transport, o),
		events:  newBroker(),
		cfg:     o.cfg,
		log:     o.log,
		newID:   o.newID,
	}
}

// Constraints returns the selection constraints.
func (u *Uploader) Constraints() Constraints { return u.c }

// Bind routes the aggregated result into sink.
func (u *Uploader) Bind(sink FieldSink) {
	u.sinkMu.Lock()
	defer u.sinkMu.Unlock()
	u.sink = sink
}

// Subscribe returns a stream of file events and a cancel function. Events
// are dropped for a subscriber whose buffer is full; the state machine never
// waits on listeners.
func (u *Uploader) Subscribe(buffer int) (<-chan Event, func()) {
	return u.events.subscribe(buffer)
}

// Select validates files against the constraints and appends them to the
// list. Files failing a constraint are kept in Error with the reason.
func (u *Uploader) Select(files ...RawFile) []FileInfo {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	admitted := 0
	for _, id := range u.order {
		if !u.entries[id].rejected {
			admitted++
		}
	}
	out := make([]FileInfo, 0, len(files))
	for _, f := range files {
		if f.MIMEType == "" {
			f.MIMEType = mimeFromName(f.Name)
		}
		e := &entry{info: FileInfo{ID: u.newID(), File: f, Status: Idle}}
		if iss := u.c.check(u.cfg, f, admitted); iss != nil {
			e.rejected = true
			e.info.Status = Error
			e.info.Err = iss.Message
			u.log.Debug("upload file rejected", zap.String("file", f.Name), zap.String("code", iss.Code))
		} else {
			admitted++
		}
		u.entries[e.info.ID] = e
		u.order = append(u.order, e.info.ID)
		u.events.publish(Event{Kind: EventSelected, File: e.info})
		out = append(out, e.info)
	}
	return out
}

// Upload sends the given Idle files (all Idle files when ids is empty)
// through the orchestrator and waits for the transport to resolve.
func (u *Uploader) Upload(ctx context.Context, ids ...string) error {
	_, err := u.orch.UploadMany(ctx, u, ids...)
	return err
}

// Retry re-sends one file that failed in transport.
func (u *Uploader) Retry(ctx context.Context, id string) error {
	if u.orch.transport == nil {
		return ErrNoTransport
	}
	u.mu.Lock()
	e, ok := u.entries[id]
	switch {
	case !ok:
		u.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case e.rejected:
		u.mu.Unlock()
		return fmt.Errorf("%w: %s was rejected at selection: %s", ErrNotRetryable, id, e.info.Err)
	case e.info.Status != Error:
		u.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotRetryable, id, e.info.Status)
	}
	c := u.claimLocked(e)
	u.mu.Unlock()
	_, err := u.orch.dispatch(ctx, u, []claim{c})
	return err
}

// Remove deletes the entry unconditionally. An in-flight transport call is
// not cancelled; its resolution for this file is discarded.
func (u *Uploader) Remove(ctx context.Context, id string) error {
	u.mu.Lock()
	e, ok := u.entries[id]
	if !ok {
		u.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(u.entries, id)
	u.order = slices.DeleteFunc(u.order, func(s string) bool { return s == id })
	u.events.publish(Event{Kind: EventRemoved, File: e.info})
	u.mu.Unlock()
	u.log.Debug("upload file removed", zap.String("id", id), zap.Stringer("status", e.info.Status))
	u.aggregate(ctx)
	return nil
}

// Files returns the entries in selection order.
func (u *Uploader) Files() []FileInfo {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]FileInfo, 0, len(u.order))
	for _, id := range u.order {
		out = append(out, u.entries[id].info)
	}
	return out
}

// File returns one entry.
func (u *Uploader) File(id string) (FileInfo, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, ok := u.entries[id]
	if !ok {
		return FileInfo{}, false
	}
	return e.info, true
}

// Close drops every entry and ends all event streams. Pending resolutions
// become no-ops.
func (u *Uploader) Close() {
	u.mu.Lock()
	u.closed = true
	u.entries = map[string]*entry{}
	u.order = nil
	u.mu.Unlock()
	u.events.close()
}

// ---- transitions used by the orchestrator ----

type claim struct {
	id   string
	gen  uint64
	file RawFile
}

func (u *Uploader) claimLocked(e *entry) claim {
	e.gen++
	e.info.Status = Uploading
	e.info.Progress = 0
	e.info.Err = ""
	e.info.RemoteURL = ""
	u.events.publish(Event{Kind: EventStatus, File: e.info})
	return claim{id: e.info.ID, gen: e.gen, file: e.info.File}
}

// claimIdle atomically marks the selected Idle files Uploading. Files in any
// other state are skipped, so concurrent calls never claim a file twice.
func (u *Uploader) claimIdle(ids []string) ([]claim, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(ids) == 0 {
		ids = u.order
	}
	var out []claim
	for _, id := range ids {
		e, ok := u.entries[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if e.info.Status != Idle {
			continue
		}
		out = append(out, claim{id: id})
	}
	for i := range out {
		out[i] = u.claimLocked(u.entries[out[i].id])
	}
	return out, nil
}

// live returns the entry for c when c is still its most recent claim.
func (u *Uploader) live(c claim) (*entry, bool) {
	e, ok := u.entries[c.id]
	if !ok || e.gen != c.gen || e.info.Status != Uploading {
		return nil, false
	}
	return e, true
}

func (u *Uploader) progress(c claim, pct int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, ok := u.live(c)
	if !ok {
		return
	}
	pct = min(max(pct, 0), 100)
	if pct <= e.info.Progress {
		return
	}
	e.info.Progress = pct
	u.events.publish(Event{Kind: EventProgress, File: e.info})
}

func (u *Uploader) succeed(batch []claim, urls []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, c := range batch {
		e, ok := u.live(c)
		if !ok {
			continue
		}
		e.info.Status = Success
		e.info.Progress = 100
		e.info.RemoteURL = urls[i]
		u.events.publish(Event{Kind: EventStatus, File: e.info})
	}
}

func (u *Uploader) fail(batch []claim, msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, c := range batch {
		e, ok := u.live(c)
		if !ok {
			continue
		}
		e.info.Status = Error
		e.info.Err = msg
		u.events.publish(Event{Kind: EventStatus, File: e.info})
	}
}

// aggregate pushes the field value once every admitted entry succeeded: a
// single URL, or the URLs in selection order when Multiple. An empty list
// clears the field; anything else leaves it untouched.
func (u *Uploader) aggregate(ctx context.Context) {
	u.sinkMu.Lock()
	defer u.sinkMu.Unlock()
	if u.sink == nil {
		return
	}

	u.mu.Lock()
	var urls []string
	complete := true
	for _, id := range u.order {
		e := u.entries[id]
		if e.rejected {
			continue
		}
		if e.info.Status != Success {
			complete = false
			break
		}
		urls = append(urls, e.info.RemoteURL)
	}
	u.mu.Unlock()

	switch {
	case !complete:
		return
	case len(urls) == 0:
		u.sink.Clear(ctx)
	case u.c.Multiple:
		u.sink.SetValue(ctx, urls)
	default:
		u.sink.SetValue(ctx, urls[0])
	}
}
