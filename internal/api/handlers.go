package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ignite/adreport-ingest/internal/datanorm"
	"github.com/ignite/adreport-ingest/internal/ingest"
	"github.com/ignite/adreport-ingest/internal/ledger"
	"github.com/ignite/adreport-ingest/internal/pkg/distlock"
	"github.com/ignite/adreport-ingest/internal/pkg/httputil"
	"github.com/ignite/adreport-ingest/internal/pkg/logger"
	"github.com/ignite/adreport-ingest/internal/prompt"
	"github.com/ignite/adreport-ingest/internal/report"
	"github.com/ignite/adreport-ingest/internal/storage"
)

// Inbox lists files waiting to be ingested.
type Inbox interface {
	Files(ctx context.Context) ([]ingest.File, error)
}

// Options tunes the handlers. Zero values fall back to defaults.
type Options struct {
	Inbox          Inbox
	Prompt         prompt.Options
	ExcerptDays    int
	MaxUploadBytes int64
	Logger         *logger.Logger
	// MergeLock, when set, also serializes merges across instances.
	MergeLock storage.LockFactory
}

const (
	defaultMaxUploadBytes = 100 << 20
	multipartMemory       = 32 << 20
	lockRetry             = 100 * time.Millisecond
)

// Handlers serves the ingest and read endpoints over one repository.
type Handlers struct {
	processor   *ingest.Processor
	repo        *storage.Repository
	inbox       Inbox
	promptOpts  prompt.Options
	excerptDays int
	maxUpload   int64
	log         *logger.Logger
	mergeLock   storage.LockFactory
	poller      *InboxPoller

	// mu serializes load-merge-save so concurrent uploads never drop a merge.
	mu sync.Mutex
}

func NewHandlers(p *ingest.Processor, repo *storage.Repository, opts Options) *Handlers {
	h := &Handlers{
		processor:   p,
		repo:        repo,
		inbox:       opts.Inbox,
		promptOpts:  opts.Prompt.WithDefaults(),
		excerptDays: opts.ExcerptDays,
		maxUpload:   opts.MaxUploadBytes,
		log:         opts.Logger,
		mergeLock:   opts.MergeLock,
	}
	if h.excerptDays <= 0 {
		h.excerptDays = ledger.DefaultExcerptDays
	}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUploadBytes
	}
	if h.log == nil {
		h.log = logger.Default()
	}
	return h
}

// SetInboxPoller routes inbox requests through p so manual and scheduled
// runs share its dedupe state.
func (h *Handlers) SetInboxPoller(p *InboxPoller) { h.poller = p }

// IngestResponse is the batch result plus the state after merging.
type IngestResponse struct {
	*ingest.Result
	DryRun      bool `json:"dry_run"`
	LedgerDays  int  `json:"ledger_days"`
	ReportCount int  `json:"report_count"`
}

type uploadedFile struct {
	fh *multipart.FileHeader
}

func (f uploadedFile) Name() string { return filepath.Base(f.fh.Filename) }

func (f uploadedFile) Open() (io.ReadCloser, error) { return f.fh.Open() }

// HandleIngest processes multipart "files" and merges the result.
// ?dry_run=true returns the merged counts without saving.
//
//	POST /api/ingest
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	dryRun, err := queryBool(r, "dry_run")
	if err != nil {
		httputil.BadRequest(w, "dry_run must be true or false")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(h.maxUpload>>20, 10)+" MB")
			return
		}
		httputil.BadRequest(w, "expected a multipart form with files")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		httputil.BadRequest(w, "no files uploaded")
		return
	}
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadedFile{fh: fh})
	}

	resp, err := h.ingest(r.Context(), files, dryRun)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, resp)
}

// HandleInboxIngest pulls every report waiting in the S3 inbox.
//
//	POST /api/ingest/inbox
func (h *Handlers) HandleInboxIngest(w http.ResponseWriter, r *http.Request) {
	if h.inbox == nil {
		httputil.Unavailable(w, "inbox not configured")
		return
	}
	dryRun, err := queryBool(r, "dry_run")
	if err != nil {
		httputil.BadRequest(w, "dry_run must be true or false")
		return
	}
	if h.poller != nil {
		resp, err := h.poller.RunOnce(r.Context(), dryRun)
		if errors.Is(err, ErrPollInProgress) {
			httputil.Error(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		httputil.OK(w, resp)
		return
	}
	files, err := h.inbox.Files(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	resp, err := h.ingest(r.Context(), files, dryRun)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, resp)
}

// HandleInboxStatus reports the background poller, if any.
//
//	GET /api/inbox/status
func (h *Handlers) HandleInboxStatus(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		httputil.OK(w, InboxStatus{})
		return
	}
	st := h.poller.Status()
	if st.LastError != "" {
		st.LastError = httputil.PublicMessage(errors.New(st.LastError))
	}
	httputil.OK(w, st)
}

func (h *Handlers) ingest(ctx context.Context, files []ingest.File, dryRun bool) (*IngestResponse, error) {
	result := h.processor.ProcessFiles(ctx, files)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.mergeLock != nil {
		release, err := distlock.Hold(ctx, h.mergeLock(), lockRetry)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	l, err := h.repo.LoadLedger(ctx)
	if err != nil {
		return nil, err
	}
	s, err := h.repo.LoadStore(ctx)
	if err != nil {
		return nil, err
	}

	// Daily rows first, then bundles.
	l = ledger.MergeTier1(l, result.Tier1)
	s = ledger.MergeTier2(s, result.Tier2)

	if !dryRun {
		if len(result.Tier1) > 0 {
			if err := h.repo.SaveLedger(ctx, l); err != nil {
				return nil, err
			}
		}
		if len(result.Tier2) > 0 {
			if err := h.repo.SaveStore(ctx, s); err != nil {
				return nil, err
			}
		}
	}

	h.log.Info("Ingest merged",
		"run_id", result.Summary.RunID,
		"dry_run", dryRun,
		"ledger_days", len(l),
		"report_count", s.ReportCount,
	)
	return &IngestResponse{
		Result:      result,
		DryRun:      dryRun,
		LedgerDays:  len(l),
		ReportCount: s.ReportCount,
	}, nil
}

// ClassifyRequest carries one header row.
type ClassifyRequest struct {
	Headers []string `json:"headers"`
}

// ClassifyResponse is the winning signature, if any, and every score.
type ClassifyResponse struct {
	Match  *datanorm.Signature `json:"match"`
	Scores []datanorm.Score    `json:"scores"`
}

// HandleClassify explains how a header row scores against the catalog.
//
//	POST /api/classify
func (h *Handlers) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Headers) == 0 {
		httputil.BadRequest(w, "headers are required")
		return
	}
	reg := h.processor.Registry()
	httputil.OK(w, ClassifyResponse{
		Match:  reg.Classify(req.Headers),
		Scores: reg.Explain(req.Headers),
	})
}

// LedgerResponse is a trailing window of the daily ledger.
type LedgerResponse struct {
	Dates []string      `json:"dates"`
	Days  ledger.Ledger `json:"days"`
}

// HandleLedger returns the window ending at ?end (default latest date)
// covering ?days days.
//
//	GET /api/ledger
func (h *Handlers) HandleLedger(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", h.excerptDays)
	if err != nil || days < 1 {
		httputil.BadRequest(w, "days must be a positive integer")
		return
	}
	l, err := h.repo.LoadLedger(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	ex := ledger.Excerpt(l, r.URL.Query().Get("end"), days)
	dates := ex.Dates()
	if dates == nil {
		dates = []string{}
	}
	httputil.OK(w, LedgerResponse{Dates: dates, Days: ex})
}

// ReportInfo describes one stored bundle without its rows.
type ReportInfo struct {
	Platform   datanorm.Platform `json:"platform"`
	ReportType string            `json:"report_type"`
	Label      string            `json:"label"`
	RowCount   int               `json:"row_count"`
	TotalSpend *float64          `json:"total_spend,omitempty"`
	DateRange  *report.DateRange `json:"date_range,omitempty"`
	SourceFile string            `json:"source_file,omitempty"`
	UploadedAt time.Time         `json:"uploaded_at"`
}

// ReportsResponse lists the tier-2 store.
type ReportsResponse struct {
	LastUpdated time.Time    `json:"last_updated"`
	ReportCount int          `json:"report_count"`
	Reports     []ReportInfo `json:"reports"`
}

// HandleReports lists stored bundles in platform, report type order.
//
//	GET /api/reports
func (h *Handlers) HandleReports(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.LoadStore(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	resp := ReportsResponse{
		LastUpdated: s.LastUpdated,
		ReportCount: s.ReportCount,
		Reports:     []ReportInfo{},
	}
	for _, k := range s.Keys() {
		b, _ := s.Bundle(k)
		resp.Reports = append(resp.Reports, ReportInfo{
			Platform:   k.Platform,
			ReportType: k.ReportType,
			Label:      b.Label,
			RowCount:   b.Meta.RowCount,
			TotalSpend: b.Meta.TotalSpend,
			DateRange:  b.Meta.DateRange,
			SourceFile: b.Meta.SourceFile,
			UploadedAt: b.Meta.UploadedAt,
		})
	}
	httputil.OK(w, resp)
}

// HandleSignatures returns the catalog in evaluation order.
//
//	GET /api/signatures
func (h *Handlers) HandleSignatures(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.processor.Registry().Signatures())
}

// ContextRequest is optional; an empty body builds the context from state
// alone.
type ContextRequest struct {
	Campaigns    []prompt.Campaign `json:"campaigns"`
	Days         int               `json:"days"`
	End          string            `json:"end"`
	GeneratedFor string            `json:"generated_for"`
}

// HandleContext renders the analysis context as plain text.
//
//	POST /api/context
func (h *Handlers) HandleContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := decodeOptional(r, &req); err != nil {
		httputil.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	days := req.Days
	if days <= 0 {
		days = h.excerptDays
	}

	l, err := h.repo.LoadLedger(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	s, err := h.repo.LoadStore(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	opts := h.promptOpts
	opts.GeneratedFor = req.GeneratedFor
	text := prompt.BuildContext(s, ledger.Excerpt(l, req.End, days), req.Campaigns, opts)
	httputil.Text(w, http.StatusOK, text)
}
