package api

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ignite/adreport-ingest/internal/ingest"
	"github.com/ignite/adreport-ingest/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type versionedFile struct {
	ingest.File
	version string
}

func (f versionedFile) Version() string { return f.version }

type unreadableFile struct{ name, version string }

func (f unreadableFile) Name() string    { return f.name }
func (f unreadableFile) Version() string { return f.version }
func (f unreadableFile) Open() (io.ReadCloser, error) {
	return nil, errors.New("connection reset by peer")
}

func googleFile(version string) ingest.File {
	return versionedFile{File: ingest.BytesFile("google.csv", []byte(googleCSV)), version: version}
}

func TestNewInboxPoller_NoInbox(t *testing.T) {
	env := setupTestServer(t, Options{})
	assert.Nil(t, NewInboxPoller(env.h, time.Minute))
}

func TestInboxPoller_SkipsSeenVersions(t *testing.T) {
	inbox := &fakeInbox{files: []ingest.File{googleFile("incoming/google.csv@1")}}
	env := setupTestServer(t, Options{Inbox: inbox})
	p := NewInboxPoller(env.h, time.Minute)
	ctx := context.Background()

	resp, err := p.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Len(t, resp.Tier1, 1)
	assert.Equal(t, 2, resp.LedgerDays)

	resp, err = p.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, resp.Tier1)
	assert.Equal(t, 0, resp.Summary.FilesProcessed)
	assert.Equal(t, 2, resp.LedgerDays)

	// An overwritten object has a new version.
	inbox.files = []ingest.File{googleFile("incoming/google.csv@2")}
	resp, err = p.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Len(t, resp.Tier1, 1)

	st := p.Status()
	assert.Equal(t, 2, st.SeenFiles)
	assert.Equal(t, 1, st.LastFiles)
	require.NotNil(t, st.LastRunAt)
	assert.False(t, st.Polling)
}

func TestInboxPoller_DryRunDoesNotMarkSeen(t *testing.T) {
	inbox := &fakeInbox{files: []ingest.File{googleFile("v1")}}
	env := setupTestServer(t, Options{Inbox: inbox})
	p := NewInboxPoller(env.h, time.Minute)

	resp, err := p.RunOnce(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, resp.DryRun)
	assert.Zero(t, p.Status().SeenFiles)

	l, err := env.repo.LoadLedger(context.Background())
	require.NoError(t, err)
	assert.Empty(t, l)

	resp, err = p.RunOnce(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, resp.Tier1, 1)
}

func TestInboxPoller_RetriesUnversionedAndFailedFiles(t *testing.T) {
	inbox := &fakeInbox{files: []ingest.File{
		ingest.BytesFile("plain.csv", []byte(googleCSV)),
		unreadableFile{name: "broken.csv", version: "broken@1"},
	}}
	env := setupTestServer(t, Options{Inbox: inbox})
	p := NewInboxPoller(env.h, time.Minute)

	for i := 0; i < 2; i++ {
		resp, err := p.RunOnce(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Summary.FilesProcessed)
		require.Len(t, resp.Unrecognized, 1)
		assert.Equal(t, "broken.csv", resp.Unrecognized[0].FileName)
	}
	assert.Zero(t, p.Status().SeenFiles)
}

func zipArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestInboxPoller_RetriesArchiveWithFailedEntry(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"google.csv":  googleCSV,
		"broken.xlsx": "not a workbook",
	})
	healthy := zipArchive(t, map[string]string{"google.csv": googleCSV})
	inbox := &fakeInbox{files: []ingest.File{
		versionedFile{File: ingest.BytesFile("exports.zip", archive), version: "exports.zip@1"},
		versionedFile{File: ingest.BytesFile("clean.zip", healthy), version: "clean.zip@1"},
	}}
	env := setupTestServer(t, Options{Inbox: inbox})
	p := NewInboxPoller(env.h, time.Minute)

	resp, err := p.RunOnce(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, resp.Unrecognized, 1)
	assert.Equal(t, "exports.zip/broken.xlsx", resp.Unrecognized[0].FileName)
	assert.Equal(t, 1, p.Status().SeenFiles)

	// Only the archive with the failed entry is picked up again.
	resp, err = p.RunOnce(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Summary.FilesProcessed)
	require.Len(t, resp.Unrecognized, 1)
}

func TestHasErrors(t *testing.T) {
	unrecognized := []report.Unrecognized{
		{FileName: "a.zip/inner.csv", Error: "bad"},
		{FileName: "b.csv"},
		{FileName: "c.csv", Error: "bad"},
	}
	assert.True(t, hasErrors(unrecognized, "a.zip"))
	assert.False(t, hasErrors(unrecognized, "a.zi"))
	assert.False(t, hasErrors(unrecognized, "b.csv"))
	assert.True(t, hasErrors(unrecognized, "c.csv"))
}

func TestInboxPoller_ListingError(t *testing.T) {
	env := setupTestServer(t, Options{Inbox: &fakeInbox{err: errors.New("dial tcp: lookup s3: no such host")}})
	env.h.SetInboxPoller(NewInboxPoller(env.h, time.Minute))

	w := env.do(http.MethodPost, "/api/ingest/inbox", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = env.do(http.MethodGet, "/api/inbox/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[InboxStatus](t, w)
	assert.Equal(t, "Storage temporarily unavailable", st.LastError)
	assert.NotNil(t, st.LastRunAt)
}

func TestHandleInboxIngest_ThroughPoller(t *testing.T) {
	inbox := &fakeInbox{files: []ingest.File{googleFile("v1")}}
	env := setupTestServer(t, Options{Inbox: inbox})
	p := NewInboxPoller(env.h, time.Minute)
	env.h.SetInboxPoller(p)

	w := env.do(http.MethodPost, "/api/ingest/inbox", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[ingestBody](t, w).Tier1, 1)

	w = env.do(http.MethodPost, "/api/ingest/inbox", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[ingestBody](t, w).Tier1)

	atomic.StoreInt32(&p.running, 1)
	w = env.do(http.MethodPost, "/api/ingest/inbox", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	atomic.StoreInt32(&p.running, 0)
}

func TestHandleInboxStatus_NoPoller(t *testing.T) {
	env := setupTestServer(t, Options{})
	w := env.do(http.MethodGet, "/api/inbox/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"polling":false,"running":false,"last_files":0,"seen_files":0}`, w.Body.String())
}

func TestInboxPoller_StartAndStop(t *testing.T) {
	inbox := &fakeInbox{files: []ingest.File{googleFile("v1")}}
	env := setupTestServer(t, Options{Inbox: inbox})
	p := NewInboxPoller(env.h, time.Hour)

	p.Start(context.Background())
	assert.True(t, p.Status().Polling)

	// The first pass runs without waiting for the ticker.
	require.Eventually(t, func() bool {
		return p.Status().SeenFiles == 1
	}, 2*time.Second, 10*time.Millisecond)

	first := *p.Status().LastRunAt
	time.Sleep(5 * time.Millisecond)
	p.ManualTrigger()
	require.Eventually(t, func() bool {
		st := p.Status()
		return st.LastRunAt != nil && st.LastRunAt.After(first)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, p.Status().LastFiles)

	p.Stop()
	assert.False(t, p.Status().Polling)

	l, err := env.repo.LoadLedger(context.Background())
	require.NoError(t, err)
	assert.Len(t, l, 2)
}
