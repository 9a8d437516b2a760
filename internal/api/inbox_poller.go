package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/adreport-ingest/internal/ingest"
	"github.com/ignite/adreport-ingest/internal/pkg/logger"
	"github.com/ignite/adreport-ingest/internal/report"
)

// ErrPollInProgress is returned when an inbox run is already underway.
var ErrPollInProgress = errors.New("inbox ingest already running")

// versioned is implemented by inbox files that can tell revisions apart.
type versioned interface {
	Version() string
}

// InboxPoller ingests the inbox on an interval and on demand. Files whose
// version was merged before are skipped; files without a version are
// always ingested.
type InboxPoller struct {
	h        *Handlers
	inbox    Inbox
	interval time.Duration
	log      *logger.Logger

	trigger chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	running int32
	polling atomic.Bool

	mu        sync.Mutex
	seen      map[string]struct{}
	lastRunAt time.Time
	lastErr   string
	lastFiles int
}

// NewInboxPoller polls h's inbox. It returns nil when h has no inbox.
func NewInboxPoller(h *Handlers, interval time.Duration) *InboxPoller {
	if h.inbox == nil {
		return nil
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &InboxPoller{
		h:        h,
		inbox:    h.inbox,
		interval: interval,
		log:      h.log.With("component", "inbox_poller"),
		trigger:  make(chan struct{}, 1),
		seen:     make(map[string]struct{}),
	}
}

// Start runs one pass immediately, then one per interval or trigger,
// until ctx is cancelled or Stop is called.
func (p *InboxPoller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.polling.Store(true)
	go func() {
		defer close(p.done)
		p.tick(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			case <-p.trigger:
				p.tick(ctx)
			}
		}
	}()
	p.log.Info("Inbox poller started", "interval", p.interval)
}

// Stop cancels the loop and waits for the current pass to finish.
func (p *InboxPoller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.polling.Store(false)
	p.log.Info("Inbox poller stopped")
}

// ManualTrigger asks the loop for a pass without waiting for it.
func (p *InboxPoller) ManualTrigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *InboxPoller) IsRunning() bool { return atomic.LoadInt32(&p.running) == 1 }

func (p *InboxPoller) tick(ctx context.Context) {
	if _, err := p.RunOnce(ctx, false); err != nil && !errors.Is(err, ErrPollInProgress) {
		p.log.Error("Inbox poll failed", "error", err)
	}
}

// RunOnce lists the inbox and ingests every file not merged before. A dry
// run neither saves state nor marks files as seen. Files that failed to
// read are retried on the next pass.
func (p *InboxPoller) RunOnce(ctx context.Context, dryRun bool) (*IngestResponse, error) {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return nil, ErrPollInProgress
	}
	defer atomic.StoreInt32(&p.running, 0)

	resp, fresh, err := p.run(ctx, dryRun)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRunAt = time.Now().UTC()
	p.lastErr = ""
	if err != nil {
		p.lastErr = err.Error()
		return nil, err
	}
	p.lastFiles = len(fresh)
	if !dryRun {
		for _, f := range fresh {
			if f.version != "" && !hasErrors(resp.Unrecognized, f.name) {
				p.seen[f.version] = struct{}{}
			}
		}
	}
	return resp, nil
}

type inboxEntry struct {
	name    string
	version string
}

func (p *InboxPoller) run(ctx context.Context, dryRun bool) (*IngestResponse, []inboxEntry, error) {
	files, err := p.inbox.Files(ctx)
	if err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	var batch []ingest.File
	var entries []inboxEntry
	for _, f := range files {
		v := fileVersion(f)
		if _, ok := p.seen[v]; ok && v != "" {
			continue
		}
		batch = append(batch, f)
		entries = append(entries, inboxEntry{name: f.Name(), version: v})
	}
	p.mu.Unlock()

	p.log.Debug("Inbox listed", "files", len(files), "new", len(batch))
	resp, err := p.h.ingest(ctx, batch, dryRun)
	if err != nil {
		return nil, nil, err
	}
	return resp, entries, nil
}

// hasErrors reports whether name, or any archive entry inside it, failed.
func hasErrors(unrecognized []report.Unrecognized, name string) bool {
	for _, u := range unrecognized {
		if u.Error == "" {
			continue
		}
		if u.FileName == name || strings.HasPrefix(u.FileName, name+"/") {
			return true
		}
	}
	return false
}

func fileVersion(f ingest.File) string {
	if v, ok := f.(versioned); ok {
		return v.Version()
	}
	return ""
}

// InboxStatus reports the poller's recent activity.
type InboxStatus struct {
	Polling   bool       `json:"polling"`
	Running   bool       `json:"running"`
	Interval  string     `json:"interval,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastFiles int        `json:"last_files"`
	LastError string     `json:"last_error,omitempty"`
	SeenFiles int        `json:"seen_files"`
}

func (p *InboxPoller) Status() InboxStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := InboxStatus{
		Polling:   p.polling.Load(),
		Running:   p.IsRunning(),
		Interval:  p.interval.String(),
		LastFiles: p.lastFiles,
		LastError: p.lastErr,
		SeenFiles: len(p.seen),
	}
	if !p.lastRunAt.IsZero() {
		t := p.lastRunAt
		st.LastRunAt = &t
	}
	return st
}
