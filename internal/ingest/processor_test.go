package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ignite/adreport-ingest/internal/config"
	"github.com/ignite/adreport-ingest/internal/datanorm"
	"github.com/ignite/adreport-ingest/internal/pkg/logger"
	"github.com/ignite/adreport-ingest/internal/report"
	"github.com/ignite/adreport-ingest/internal/sheetio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const googleCSV = "Day,Campaign,Cost,Impressions,Clicks\n" +
	"2026-01-05,Brand,10.00,1000,20\n" +
	"2026-01-05,Generic,5.50,500,10\n" +
	"2026-01-06,Brand,\"$1,200.00\",2000,40\n"

const metaCSV = "Reporting starts,Reporting ends,Day,Campaign name,Amount spent (USD),Impressions,Link clicks,Purchases,Purchases conversion value\n" +
	"2026-01-05,2026-01-05,2026-01-05,Prospecting,40,4000,80,2,120\n"

var fixedNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestProcessor(opts ...Option) *Processor {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(logger.New(io.Discard, logger.DEBUG)),
	}
	return NewProcessor(append(base, opts...)...)
}

func zipOf(t *testing.T, entries ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(e[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestProcessFiles_GoogleDailyEndToEnd(t *testing.T) {
	res := newTestProcessor().ProcessFiles(context.Background(), []File{BytesFile("google.csv", []byte(googleCSV))})

	require.Len(t, res.Tier1, 1)
	t1 := res.Tier1[0]
	assert.Equal(t, "google_daily", t1.Type)
	assert.Equal(t, datanorm.PlatformGoogle, t1.Platform)
	assert.Equal(t, "google.csv", t1.FileName)
	assert.Equal(t, []string{"2026-01-05", "2026-01-06"}, t1.Meta.Dates)

	day, ok := t1.Days["2026-01-05"].(report.AdsDay)
	require.True(t, ok)
	assert.InDelta(t, 15.5, day.Metrics[report.MetricSpend], 1e-9)
	assert.InDelta(t, 1500, day.Metrics[report.MetricImpressions], 1e-9)
	assert.InDelta(t, 30, day.Metrics[report.MetricClicks], 1e-9)
	// Rates come from the day's sums, not an average of row rates.
	assert.InDelta(t, 15.5/30, day.Metrics[report.MetricCPC], 1e-9)
	assert.InDelta(t, 2.0, day.Metrics[report.MetricCTR], 1e-9)
	assert.NotContains(t, day.Metrics, report.MetricROAS)
	assert.NotContains(t, day.Metrics, report.MetricCPA)

	next := t1.Days["2026-01-06"].(report.AdsDay)
	assert.InDelta(t, 1200, next.Metrics[report.MetricSpend], 1e-9)

	require.Len(t, res.Tier2, 1)
	t2 := res.Tier2[0]
	assert.Equal(t, "google_daily_detail", t2.Type)
	assert.True(t, t2.Detail)
	assert.Equal(t, 3, t2.Bundle.Meta.RowCount)
	require.NotNil(t, t2.Bundle.Meta.TotalSpend)
	assert.InDelta(t, 1215.5, *t2.Bundle.Meta.TotalSpend, 1e-9)
	assert.Equal(t, fixedNow, t2.Bundle.Meta.UploadedAt)
	assert.Equal(t, "google.csv", t2.Bundle.Meta.SourceFile)

	assert.Empty(t, res.Unrecognized)
	assert.Equal(t, 1, res.Summary.FilesProcessed)
	assert.Equal(t, 1, res.Summary.Tier1Count)
	assert.Equal(t, 1, res.Summary.Tier2Count)
	assert.Equal(t, []datanorm.Platform{datanorm.PlatformGoogle}, res.Summary.Platforms)
	assert.NotEmpty(t, res.Summary.RunID)
}

func TestProcessFiles_GoogleDailyAbbreviatedHeaders(t *testing.T) {
	data := []byte("Day,Campaign,Cost,Impr.,Clicks,Conversions,Conv. value\n" +
		"2026-01-05,Brand,10.00,1000,20,2,50\n" +
		"2026-01-05,Generic,5.00,500,10,1,10\n")
	res := newTestProcessor().ProcessFiles(context.Background(), []File{BytesFile("google.csv", data)})

	require.Len(t, res.Tier1, 1)
	assert.Equal(t, "google_daily", res.Tier1[0].Type)
	day, ok := res.Tier1[0].Days["2026-01-05"].(report.AdsDay)
	require.True(t, ok)
	assert.InDelta(t, 15, day.Metrics[report.MetricSpend], 1e-9)
	assert.InDelta(t, 1500, day.Metrics[report.MetricImpressions], 1e-9)
	assert.InDelta(t, 60, day.Metrics[report.MetricConversionValue], 1e-9)
	assert.InDelta(t, 4, day.Metrics[report.MetricROAS], 1e-9)

	require.Len(t, res.Tier2, 1)
	assert.Equal(t, "google_daily_detail", res.Tier2[0].Type)
}

func TestProcessFiles_SingleRowScenario(t *testing.T) {
	data := []byte("Day,Campaign,Cost,Impressions,Clicks\n2026-01-05,TestCampaign,12.50,1000,20\n")
	res := newTestProcessor().ProcessFiles(context.Background(), []File{BytesFile("export.csv", data)})

	require.Len(t, res.Tier1, 1)
	assert.Equal(t, "google_daily", res.Tier1[0].Type)
	day := res.Tier1[0].Days["2026-01-05"].(report.AdsDay)
	assert.InDelta(t, 12.5, day.Metrics[report.MetricSpend], 1e-9)
	assert.InDelta(t, 1000, day.Metrics[report.MetricImpressions], 1e-9)
	assert.InDelta(t, 20, day.Metrics[report.MetricClicks], 1e-9)
	assert.InDelta(t, 0.625, day.Metrics[report.MetricCPC], 1e-9)
	assert.InDelta(t, 2.0, day.Metrics[report.MetricCTR], 1e-9)

	require.Len(t, res.Tier2, 1)
	records := res.Tier2[0].Bundle.Records
	require.Len(t, records, 1)
	assert.Equal(t, "TestCampaign", records[0]["Campaign"])
	assert.Equal(t, "12.50", records[0]["Cost"])
}

func TestProcessFiles_UnrecognizedPassthrough(t *testing.T) {
	data := []byte("Widget,Gizmo\nx,1\ny,2\nz,3\n")
	res := newTestProcessor().ProcessFiles(context.Background(), []File{BytesFile("mystery.csv", data)})

	assert.Empty(t, res.Tier1)
	assert.Empty(t, res.Tier2)
	require.Len(t, res.Unrecognized, 1)
	u := res.Unrecognized[0]
	assert.Equal(t, "mystery.csv", u.FileName)
	assert.Equal(t, []string{"Widget", "Gizmo"}, u.Headers)
	assert.Equal(t, 3, u.RowCount)
	assert.Empty(t, u.Error)
}

func TestProcessFiles_Failures(t *testing.T) {
	p := newTestProcessor(WithFormats(sheetio.DefaultFormats(sheetio.WithDisabled(".xls", ".zip"))))
	res := p.ProcessFiles(context.Background(), []File{
		BytesFile("notes.txt", []byte("hello")),
		BytesFile("legacy.xls", []byte("whatever")),
		BytesFile("bundle.zip", zipOf(t, [2]string{"google.csv", googleCSV})),
		BytesFile("empty.csv", []byte("\n")),
		PathFile(filepath.Join(t.TempDir(), "missing.csv")),
	})

	require.Len(t, res.Unrecognized, 5)
	assert.Empty(t, res.Tier1)
	assert.Contains(t, res.Unrecognized[0].Error, sheetio.ErrUnsupportedFormat.Error())
	assert.Contains(t, res.Unrecognized[1].Error, "disabled")
	assert.Equal(t, sheetio.ErrArchiveUnavailable.Error(), res.Unrecognized[2].Error)
	assert.Equal(t, sheetio.ErrEmptyFile.Error(), res.Unrecognized[3].Error)
	assert.Equal(t, "missing.csv", res.Unrecognized[4].FileName)
	assert.Contains(t, res.Unrecognized[4].Error, "opening file")
}

func TestProcessFiles_DeterministicOrder(t *testing.T) {
	files := []File{
		BytesFile("a.csv", []byte(googleCSV)),
		BytesFile("b.csv", []byte("Widget\n1\n")),
		BytesFile("c.csv", []byte(metaCSV)),
		BytesFile("d.csv", []byte(googleCSV)),
	}
	for i := 0; i < 5; i++ {
		res := newTestProcessor(WithConcurrency(3)).ProcessFiles(context.Background(), files)
		require.Len(t, res.Tier1, 3)
		assert.Equal(t, "a.csv", res.Tier1[0].FileName)
		assert.Equal(t, "c.csv", res.Tier1[1].FileName)
		assert.Equal(t, "meta_daily", res.Tier1[1].Type)
		assert.Equal(t, "d.csv", res.Tier1[2].FileName)
		require.Len(t, res.Tier2, 3)
		assert.Equal(t, "meta_daily_detail", res.Tier2[1].Type)
		require.Len(t, res.Unrecognized, 1)
		assert.Equal(t, "b.csv", res.Unrecognized[0].FileName)
		assert.Equal(t, []datanorm.Platform{datanorm.PlatformGoogle, datanorm.PlatformMeta}, res.Summary.Platforms)
		assert.Len(t, res.Summary.Reports, 6)
	}
}

func TestProcessFiles_Archive(t *testing.T) {
	inner := zipOf(t, [2]string{"deep/meta.csv", metaCSV})
	outer := zipOf(t,
		[2]string{"exports/google.csv", googleCSV},
		[2]string{"exports/broken.xlsx", "not really a workbook"},
		[2]string{"__MACOSX/exports/._google.csv", "junk"},
		[2]string{"nested.zip", string(inner)},
	)

	res := newTestProcessor().ProcessFiles(context.Background(), []File{BytesFile("reports.zip", outer)})

	require.Len(t, res.Tier1, 2)
	assert.Equal(t, "reports.zip/exports/google.csv", res.Tier1[0].FileName)
	assert.Equal(t, "reports.zip/nested.zip/deep/meta.csv", res.Tier1[1].FileName)

	// The broken entry does not stop its siblings.
	require.Len(t, res.Unrecognized, 1)
	assert.Equal(t, "reports.zip/exports/broken.xlsx", res.Unrecognized[0].FileName)
	assert.NotEmpty(t, res.Unrecognized[0].Error)
}

func TestProcessFiles_ArchiveDepthLimit(t *testing.T) {
	data := zipOf(t, [2]string{"google.csv", googleCSV})
	for i := 0; i < maxArchiveDepth; i++ {
		data = zipOf(t, [2]string{"level.zip", string(data)})
	}

	res := newTestProcessor().ProcessFiles(context.Background(), []File{BytesFile("top.zip", data)})
	assert.Empty(t, res.Tier1)
	require.Len(t, res.Unrecognized, 1)
	assert.Contains(t, res.Unrecognized[0].Error, "nesting")
}

func TestProcessFiles_Workbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Day", "Cost", "Impressions", "Clicks"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{46027, 12.5, 1000, 20}))
	_, err := f.NewSheet("Scratch")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Scratch", "A1", &[]interface{}{"Widget", "Gizmo"}))
	require.NoError(t, f.SetSheetRow("Scratch", "A2", &[]interface{}{"a", "b"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res := newTestProcessor().ProcessFiles(context.Background(), []File{BytesFile("ads.xlsx", buf.Bytes())})

	require.Len(t, res.Tier1, 1)
	assert.Equal(t, "Sheet1", res.Tier1[0].Sheet)
	assert.Contains(t, res.Tier1[0].Days, "2026-01-05")
	require.Len(t, res.Unrecognized, 1)
	assert.Equal(t, "Scratch", res.Unrecognized[0].Sheet)
	assert.Equal(t, 1, res.Unrecognized[0].RowCount)
}

func TestProcessFiles_MaxFileBytes(t *testing.T) {
	res := newTestProcessor(WithMaxFileBytes(16)).ProcessFiles(context.Background(), []File{BytesFile("google.csv", []byte(googleCSV))})
	require.Len(t, res.Unrecognized, 1)
	assert.Contains(t, res.Unrecognized[0].Error, ErrFileTooLarge.Error())
}

func TestProcessFiles_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestProcessor().ProcessFiles(ctx, []File{BytesFile("google.csv", []byte(googleCSV))})
	assert.Empty(t, res.Tier1)
	require.Len(t, res.Unrecognized, 1)
	assert.Equal(t, context.Canceled.Error(), res.Unrecognized[0].Error)
}

type panicReader struct{}

func (panicReader) Read([]byte) ([]sheetio.Sheet, error) { panic("boom") }

type errFile struct{}

func (errFile) Name() string                 { return "broken.csv" }
func (errFile) Open() (io.ReadCloser, error) { return nil, errors.New("disk gone") }

func TestProcessFiles_RecoversPanics(t *testing.T) {
	p := newTestProcessor(WithFormats(sheetio.DefaultFormats(sheetio.WithReader(".tsv", panicReader{}))))
	res := p.ProcessFiles(context.Background(), []File{
		BytesFile("bad.tsv", []byte("x")),
		errFile{},
		BytesFile("google.csv", []byte(googleCSV)),
	})

	require.Len(t, res.Unrecognized, 2)
	assert.Contains(t, res.Unrecognized[0].Error, "boom")
	assert.Contains(t, res.Unrecognized[1].Error, "disk gone")
	assert.Len(t, res.Tier1, 1)
}

type panicFile struct{ nameToo bool }

func (f panicFile) Name() string {
	if f.nameToo {
		panic("no name")
	}
	return "haunted.csv"
}

func (panicFile) Open() (io.ReadCloser, error) { panic("open exploded") }

func TestProcessFiles_RecoversFilePanics(t *testing.T) {
	res := newTestProcessor().ProcessFiles(context.Background(), []File{
		panicFile{},
		BytesFile("google.csv", []byte(googleCSV)),
		panicFile{nameToo: true},
	})

	require.Len(t, res.Unrecognized, 2)
	assert.Equal(t, "haunted.csv", res.Unrecognized[0].FileName)
	assert.Contains(t, res.Unrecognized[0].Error, "open exploded")
	assert.Equal(t, "file #3", res.Unrecognized[1].FileName)
	assert.Contains(t, res.Unrecognized[1].Error, "no name")
	assert.Len(t, res.Tier1, 1)
	assert.Equal(t, 3, res.Summary.FilesProcessed)
}

func TestPathFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "google.csv")
	require.NoError(t, os.WriteFile(path, []byte(googleCSV), 0o644))

	res := newTestProcessor().ProcessFiles(context.Background(), []File{PathFile(path)})
	require.Len(t, res.Tier1, 1)
	assert.Equal(t, "google.csv", res.Tier1[0].FileName)
}

func TestNewProcessorFromConfig(t *testing.T) {
	p := NewProcessorFromConfig(config.IngestConfig{
		Concurrency:     2,
		DisabledFormats: []string{".xls", "zip"},
		XLSCharset:      "windows-1252",
		MaxFileMB:       1,
	}, nil)

	assert.Equal(t, 2, p.concurrency)
	assert.Equal(t, int64(1<<20), p.maxFileBytes)
	_, ok := p.formats.ReaderFor(".xls")
	assert.False(t, ok)
	assert.False(t, p.formats.ArchivesEnabled())
	_, ok = p.formats.ReaderFor(".csv")
	assert.True(t, ok)
}
