// Package ingest runs uploaded files through reading, classification and
// parsing, and partitions the output into tier-1, tier-2 and unrecognized
// results.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/adreport-ingest/internal/datanorm"
	"github.com/ignite/adreport-ingest/internal/pkg/logger"
	"github.com/ignite/adreport-ingest/internal/report"
	"github.com/ignite/adreport-ingest/internal/sheetio"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 4
	// maxArchiveDepth bounds zip-in-zip recursion.
	maxArchiveDepth = 3
)

// ErrFileTooLarge is reported when a file or archive entry exceeds the
// configured byte limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// Result is the partitioned output of one batch.
type Result struct {
	Tier1        []report.Tier1Result  `json:"tier1"`
	Tier2        []report.Tier2Result  `json:"tier2"`
	Unrecognized []report.Unrecognized `json:"unrecognized"`
	Summary      Summary               `json:"summary"`
}

// Processor is safe for concurrent use; it holds no per-run state.
type Processor struct {
	registry     *datanorm.Registry
	formats      *sheetio.Formats
	concurrency  int
	maxFileBytes int64
	now          func() time.Time
	log          *logger.Logger
}

// Option configures a Processor.
type Option func(*Processor)

func WithRegistry(r *datanorm.Registry) Option {
	return func(p *Processor) {
		if r != nil {
			p.registry = r
		}
	}
}

func WithFormats(f *sheetio.Formats) Option {
	return func(p *Processor) {
		if f != nil {
			p.formats = f
		}
	}
}

// WithConcurrency caps how many files are read at once. Values below 1
// mean DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithClock sets the time source used for upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// WithMaxFileBytes rejects files and archive entries larger than n bytes.
// Zero disables the check.
func WithMaxFileBytes(n int64) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.maxFileBytes = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProcessor creates a processor over the default catalog and formats.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		registry:    datanorm.DefaultRegistry(),
		formats:     sheetio.DefaultFormats(),
		concurrency: DefaultConcurrency,
		now:         time.Now,
		log:         logger.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Registry returns the signature catalog in use.
func (p *Processor) Registry() *datanorm.Registry { return p.registry }

// output collects what one file, entry or sheet produced, in order.
type output struct {
	tier1        []report.Tier1Result
	tier2        []report.Tier2Result
	unrecognized []report.Unrecognized
}

func (o *output) append(other output) {
	o.tier1 = append(o.tier1, other.tier1...)
	o.tier2 = append(o.tier2, other.tier2...)
	o.unrecognized = append(o.unrecognized, other.unrecognized...)
}

func failed(name, sheet string, err error) output {
	return output{unrecognized: []report.Unrecognized{{
		FileName: name,
		Sheet:    sheet,
		Headers:  []string{},
		Error:    err.Error(),
	}}}
}

// ProcessFiles runs the whole batch. Every failure is reported as an
// unrecognized entry; the batch itself never fails.
func (p *Processor) ProcessFiles(ctx context.Context, files []File) *Result {
	runID := uuid.New().String()
	log := p.log.With("run_id", runID)
	uploadedAt := p.now().UTC()
	start := time.Now()

	outputs := make([]output, len(files))
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i, f := range files {
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					name := safeName(f, i)
					log.Error("File pipeline panic", "file", name, "panic", rec, "stack", string(debug.Stack()))
					outputs[i] = failed(name, "", fmt.Errorf("processing file: %v", rec))
				}
			}()
			if err := ctx.Err(); err != nil {
				outputs[i] = failed(f.Name(), "", err)
				return nil
			}
			outputs[i] = p.processFile(ctx, f, uploadedAt, log)
			return nil
		})
	}
	_ = g.Wait()

	var all output
	for _, o := range outputs {
		all.append(o)
	}

	res := &Result{
		Tier1:        nonNil(all.tier1),
		Tier2:        nonNil(all.tier2),
		Unrecognized: nonNil(all.unrecognized),
	}
	res.Summary = summarize(runID, len(files), res)

	log.Info("Batch processed",
		"files", len(files),
		"tier1", res.Summary.Tier1Count,
		"tier2", res.Summary.Tier2Count,
		"unrecognized", res.Summary.UnrecognizedCount,
		"duration", time.Since(start).Round(time.Millisecond))
	return res
}

// safeName falls back to the batch position when Name itself panics.
func safeName(f File, i int) (name string) {
	defer func() {
		if recover() != nil {
			name = fmt.Sprintf("file #%d", i+1)
		}
	}()
	return f.Name()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (p *Processor) processFile(ctx context.Context, f File, uploadedAt time.Time, log *logger.Logger) output {
	name := f.Name()
	rc, err := f.Open()
	if err != nil {
		log.Warn("Open failed", "file", name, "error", err)
		return failed(name, "", fmt.Errorf("opening file: %w", err))
	}
	data, err := p.readAll(rc)
	rc.Close()
	if err != nil {
		log.Warn("Read failed", "file", name, "error", err)
		return failed(name, "", err)
	}
	return p.processData(ctx, name, data, 0, uploadedAt, log)
}

// readAll reads at most maxFileBytes+1 bytes so oversized inputs are
// detected without buffering them whole.
func (p *Processor) readAll(r io.Reader) ([]byte, error) {
	if p.maxFileBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading file: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, p.maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if int64(len(data)) > p.maxFileBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, p.maxFileBytes)
	}
	return data, nil
}

func (p *Processor) processData(ctx context.Context, name string, data []byte, depth int, uploadedAt time.Time, log *logger.Logger) output {
	ext := sheetio.Ext(name)
	if ext == sheetio.ExtZIP {
		return p.processArchive(ctx, name, data, depth, uploadedAt, log)
	}

	reader, ok := p.formats.ReaderFor(ext)
	if !ok {
		if sheetio.Known(ext) {
			return failed(name, "", fmt.Errorf("%w: %s is disabled", sheetio.ErrUnsupportedFormat, ext))
		}
		return failed(name, "", fmt.Errorf("%w: %q", sheetio.ErrUnsupportedFormat, ext))
	}

	sheets, err := readSheets(reader, data)
	if err != nil {
		log.Warn("Decode failed", "file", name, "error", err)
		return failed(name, "", err)
	}

	var out output
	for _, s := range sheets {
		out.append(p.processSheet(name, s, uploadedAt))
	}
	return out
}

// readSheets guards third-party decoders against panics on malformed input.
func readSheets(r sheetio.Reader, data []byte) (sheets []sheetio.Sheet, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("decoder panic: %v", rec)
		}
	}()
	return r.Read(data)
}

func (p *Processor) processArchive(ctx context.Context, name string, data []byte, depth int, uploadedAt time.Time, log *logger.Logger) output {
	if !p.formats.ArchivesEnabled() {
		return failed(name, "", sheetio.ErrArchiveUnavailable)
	}
	if depth >= maxArchiveDepth {
		return failed(name, "", fmt.Errorf("archive nesting deeper than %d levels", maxArchiveDepth))
	}

	entries, err := sheetio.OpenArchive(data)
	if err != nil {
		log.Warn("Archive open failed", "file", name, "error", err)
		return failed(name, "", err)
	}

	outputs := make([]output, len(entries))
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			entryName := name + "/" + e.Name
			if err := ctx.Err(); err != nil {
				outputs[i] = failed(entryName, "", err)
				return nil
			}
			outputs[i] = p.processEntry(ctx, entryName, e, depth, uploadedAt, log)
			return nil
		})
	}
	_ = g.Wait()

	var out output
	for _, o := range outputs {
		out.append(o)
	}
	if len(entries) == 0 {
		log.Debug("Archive has no supported entries", "file", name)
	}
	return out
}

func (p *Processor) processEntry(ctx context.Context, name string, e sheetio.ArchiveEntry, depth int, uploadedAt time.Time, log *logger.Logger) (out output) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Archive entry panic", "file", name, "panic", rec, "stack", string(debug.Stack()))
			out = failed(name, "", fmt.Errorf("processing entry: %v", rec))
		}
	}()

	if p.maxFileBytes > 0 && e.Size > uint64(p.maxFileBytes) {
		return failed(name, "", fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, p.maxFileBytes))
	}
	rc, err := e.Open()
	if err != nil {
		return failed(name, "", fmt.Errorf("opening archive entry: %w", err))
	}
	data, err := p.readAll(rc)
	rc.Close()
	if err != nil {
		return failed(name, "", err)
	}
	return p.processData(ctx, name, data, depth+1, uploadedAt, log)
}

// processSheet classifies one sheet and dispatches it to the aggregator or
// tabulator. A panic becomes an unrecognized entry for this sheet only.
func (p *Processor) processSheet(name string, s sheetio.Sheet, uploadedAt time.Time) (out output) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("Sheet pipeline panic", "file", name, "sheet", s.Name, "panic", rec)
			out = failed(name, s.Name, fmt.Errorf("processing sheet: %v", rec))
		}
	}()

	c := p.registry.ClassifySheet(s.Rows)
	if !c.Matched() {
		return output{unrecognized: []report.Unrecognized{{
			FileName: name,
			Sheet:    s.Name,
			Headers:  nonNil(c.Headers),
			RowCount: c.RowCount,
		}}}
	}

	sig := *c.Signature
	if sig.Tier == datanorm.TierDaily {
		agg, ok := report.AggregatorFor(sig.Platform)
		if !ok {
			return failed(name, s.Name, fmt.Errorf("no daily aggregator for platform %q", sig.Platform))
		}
		daily := agg.Aggregate(c.Headers, c.Rows)
		out.tier1 = append(out.tier1, report.Tier1Result{
			Type:     sig.ID,
			Label:    sig.Label,
			Platform: sig.Platform,
			FileName: name,
			Sheet:    s.Name,
			Days:     daily.Days,
			Meta:     daily.Meta,
		})
		if agg.Dual() {
			out.tier2 = append(out.tier2, tabulate(name, s.Name, c, report.DetailSignature(sig), true, uploadedAt))
		}
		return out
	}

	out.tier2 = append(out.tier2, tabulate(name, s.Name, c, sig, false, uploadedAt))
	return out
}

func tabulate(name, sheet string, c datanorm.Classification, sig datanorm.Signature, detail bool, uploadedAt time.Time) report.Tier2Result {
	b := report.Tabulate(c.Headers, c.Rows, sig, uploadedAt)
	b.Meta.SourceFile = name
	return report.Tier2Result{
		Type:     sig.ID,
		Label:    sig.Label,
		Platform: sig.Platform,
		FileName: name,
		Sheet:    sheet,
		Detail:   detail,
		Bundle:   b,
	}
}
