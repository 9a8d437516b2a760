package ingest

import (
	"github.com/ignite/adreport-ingest/internal/config"
	"github.com/ignite/adreport-ingest/internal/pkg/logger"
	"github.com/ignite/adreport-ingest/internal/sheetio"
)

// NewProcessorFromConfig builds a processor over the default catalog with
// the format table and limits from cfg.
func NewProcessorFromConfig(cfg config.IngestConfig, log *logger.Logger, opts ...Option) *Processor {
	// Charset first so a disabled .xls stays disabled.
	formats := sheetio.DefaultFormats(
		sheetio.WithXLSCharset(cfg.XLSCharset),
		sheetio.WithDisabled(cfg.DisabledFormats...),
	)
	base := []Option{
		WithFormats(formats),
		WithConcurrency(cfg.Concurrency),
		WithMaxFileBytes(cfg.MaxFileBytes()),
		WithLogger(log),
	}
	return NewProcessor(append(base, opts...)...)
}
