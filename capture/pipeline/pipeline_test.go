package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyread/capture/api"
	"easyread/capture/extract"
	"easyread/capture/prefs"
)

type fakeStore struct {
	mu      sync.Mutex
	created []api.CreateDocumentInput
	err     error
}

func (f *fakeStore) CreateDocument(_ context.Context, in api.CreateDocumentInput) (api.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return api.Document{}, f.err
	}
	f.created = append(f.created, in)
	return api.Document{
		ID:        "doc-1",
		Title:     in.Title,
		Content:   in.Content,
		Type:      in.Type,
		SourceTag: in.SourceTag,
		FileName:  in.FileName,
		FileURL:   in.FileURL,
	}, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeSimplifier struct {
	out   string
	err   error
	calls int
}

func (f *fakeSimplifier) Simplify(context.Context, string, []string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

type blockingSimplifier struct {
	out   string
	block chan struct{}
}

func (b *blockingSimplifier) Simplify(context.Context, string, []string) (string, error) {
	<-b.block
	return b.out, nil
}

type fakeRenderer struct {
	path  string
	err   error
	calls int
}

func (f *fakeRenderer) Render(context.Context, string, string, prefs.Preferences) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fakeExtractor struct {
	source extract.Source
	res    extract.Extraction
	err    error
	block  chan struct{}
}

func (f *fakeExtractor) Source() extract.Source { return f.source }

func (f *fakeExtractor) Extract(context.Context) (extract.Extraction, error) {
	if f.block != nil {
		<-f.block
	}
	return f.res, f.err
}

func newTestSession(store *fakeStore, sim Simplifier, r Renderer) *Session {
	return NewSession(store, sim, r, prefs.Default())
}

func pdfExtractor(text string) *fakeExtractor {
	return &fakeExtractor{
		source: extract.SourcePDF,
		res:    extract.Extraction{Text: text, SuggestedTitle: "report"},
	}
}

func TestExtractionFailureReturnsToIdle(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(store, &fakeSimplifier{}, &fakeRenderer{path: "/tmp/a.pdf"})

	err := s.BeginExtraction(context.Background(), &fakeExtractor{source: extract.SourceWeb, err: errors.New("fetch failed")})
	require.Error(t, err)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 0, store.count())
}

func TestEmptyExtractionIsNoContent(t *testing.T) {
	s := newTestSession(&fakeStore{}, &fakeSimplifier{}, &fakeRenderer{})

	err := s.BeginExtraction(context.Background(), &fakeExtractor{source: extract.SourceScan, res: extract.Extraction{Text: "  \n "}})
	assert.ErrorIs(t, err, ErrNoContent)
	assert.Equal(t, StateIdle, s.State())
}

func TestOnlyOneExtractionAtATime(t *testing.T) {
	s := newTestSession(&fakeStore{}, &fakeSimplifier{}, &fakeRenderer{})
	block := make(chan struct{})
	first := &fakeExtractor{source: extract.SourcePDF, res: extract.Extraction{Text: "text"}, block: block}

	done := make(chan error, 1)
	go func() { done <- s.BeginExtraction(context.Background(), first) }()

	require.Eventually(t, func() bool { return s.State() == StateExtracting }, time.Second, time.Millisecond)
	err := s.BeginExtraction(context.Background(), pdfExtractor("other"))
	assert.ErrorIs(t, err, ErrExtractionInFlight)

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, StateExtracted, s.State())
}

func TestLateExtractionResultIsDiscardedAfterLeave(t *testing.T) {
	s := newTestSession(&fakeStore{}, &fakeSimplifier{}, &fakeRenderer{})
	block := make(chan struct{})
	ex := &fakeExtractor{source: extract.SourcePDF, res: extract.Extraction{Text: "late text"}, block: block}

	done := make(chan error, 1)
	go func() { done <- s.BeginExtraction(context.Background(), ex) }()
	require.Eventually(t, func() bool { return s.State() == StateExtracting }, time.Second, time.Millisecond)

	s.DiscardAndLeave()
	close(block)

	assert.ErrorIs(t, <-done, ErrSessionClosed)
	assert.Empty(t, s.Extraction().Text)
}

func TestSimplifyFailureKeepsRawText(t *testing.T) {
	sim := &fakeSimplifier{err: &api.APIError{Status: 502, Message: "upstream_error"}}
	s := newTestSession(&fakeStore{}, sim, &fakeRenderer{path: "/tmp/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw words")))

	err := s.SimplifyText(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, StateExtracted, s.State())
	assert.Equal(t, "raw words", s.Extraction().Text)
	assert.Empty(t, s.Simplified())
}

func TestOnlyOneSimplificationAtATime(t *testing.T) {
	sim := &blockingSimplifier{out: "easy", block: make(chan struct{})}
	s := newTestSession(&fakeStore{}, sim, &fakeRenderer{path: "/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw")))

	done := make(chan error, 1)
	go func() { done <- s.SimplifyText(context.Background(), nil) }()
	require.Eventually(t, func() bool { return s.State() == StateTranslating }, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.SimplifyText(context.Background(), nil), ErrSimplifyInFlight)
	assert.ErrorIs(t, s.BeginExtraction(context.Background(), pdfExtractor("other")), ErrSimplifyInFlight)

	close(sim.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateReady, s.State())
}

func TestReextractionBlockedByUnsavedSimplification(t *testing.T) {
	s := newTestSession(&fakeStore{}, &fakeSimplifier{out: "easy"}, &fakeRenderer{path: "/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw")))
	require.NoError(t, s.SimplifyText(context.Background(), nil))

	err := s.BeginExtraction(context.Background(), pdfExtractor("other"))
	assert.ErrorIs(t, err, ErrUnsavedSimplification)
	assert.Equal(t, "easy", s.Simplified(), "unsaved text must survive")
}

func TestSimplifyBeforeExtractionIsRejected(t *testing.T) {
	s := newTestSession(&fakeStore{}, &fakeSimplifier{out: "easy"}, &fakeRenderer{})
	assert.ErrorIs(t, s.SimplifyText(context.Background(), nil), ErrNotExtracted)
}

func TestSaveWithNoContent(t *testing.T) {
	store := &fakeStore{}
	r := &fakeRenderer{path: "/tmp/a.pdf"}
	s := newTestSession(store, &fakeSimplifier{}, r)

	_, err := s.Save(context.Background(), "Title")
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Equal(t, 0, r.calls, "must not render empty content")
	assert.Equal(t, 0, store.count(), "must not store empty content")
}

func TestSaveRawPDFEndToEnd(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(store, &fakeSimplifier{}, &fakeRenderer{path: "/artifacts/report.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("Page one text.\n\nPage two text.")))

	doc, err := s.Save(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, StateSaved, s.State())
	require.Equal(t, 1, store.count())
	in := store.created[0]
	assert.Equal(t, "report", in.Title, "suggested title fills in when none is given")
	assert.Equal(t, "Page one text.\n\nPage two text.", in.Content)
	assert.Equal(t, "pdf", in.Type)
	assert.Equal(t, "upload", in.SourceTag)
	assert.Equal(t, "report.pdf", in.FileName)
	assert.Equal(t, "/artifacts/report.pdf", in.FileURL)
	assert.Equal(t, "doc-1", doc.ID)
}

func TestSaveSimplifiedTagsTranslator(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(store, &fakeSimplifier{out: "Easy words."}, &fakeRenderer{path: "/artifacts/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), &fakeExtractor{
		source: extract.SourceWeb,
		res:    extract.Extraction{Text: "Hard words.", SuggestedTitle: "Article"},
	}))
	require.NoError(t, s.SimplifyText(context.Background(), []string{"NHS"}))

	_, err := s.Save(context.Background(), "My Article")
	require.NoError(t, err)

	in := store.created[0]
	assert.Equal(t, "My Article", in.Title)
	assert.Equal(t, "Easy words.", in.Content, "simplified text wins over raw")
	assert.Equal(t, "web", in.Type)
	assert.Equal(t, "translator", in.SourceTag)
}

func TestSaveTitlePlaceholderWhenNothingSuggested(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(store, &fakeSimplifier{}, &fakeRenderer{path: "/a.pdf"})
	s.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, s.BeginExtraction(context.Background(), &fakeExtractor{
		source: extract.SourceScan,
		res:    extract.Extraction{Text: "scanned"},
	}))

	_, err := s.Save(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Document 2026-05-01 12:00", store.created[0].Title)
	assert.Equal(t, "scan", store.created[0].Type)
	assert.Equal(t, "scan", store.created[0].SourceTag)
}

func TestRenderFailureLeavesSessionReady(t *testing.T) {
	store := &fakeStore{}
	r := &fakeRenderer{err: errors.New("converter down")}
	s := newTestSession(store, &fakeSimplifier{out: "easy"}, r)
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw")))
	require.NoError(t, s.SimplifyText(context.Background(), nil))

	_, err := s.Save(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, 0, store.count())
	assert.ErrorIs(t, s.Leave(), ErrUnsavedSimplification, "nothing was saved")
}

func TestStoreFailureLeavesSessionReady(t *testing.T) {
	store := &fakeStore{err: errors.New("service unavailable")}
	s := newTestSession(store, &fakeSimplifier{out: "easy"}, &fakeRenderer{path: "/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw")))
	require.NoError(t, s.SimplifyText(context.Background(), nil))

	_, err := s.Save(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, StateReady, s.State())
}

func TestRepeatSaveIsRejected(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(store, &fakeSimplifier{}, &fakeRenderer{path: "/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("text")))

	_, err := s.Save(context.Background(), "")
	require.NoError(t, err)
	_, err = s.Save(context.Background(), "")
	assert.ErrorIs(t, err, ErrAlreadySaved)
	assert.Equal(t, 1, store.count())
}

type blockingRenderer struct {
	path  string
	block chan struct{}
}

func (b *blockingRenderer) Render(context.Context, string, string, prefs.Preferences) (string, error) {
	<-b.block
	return b.path, nil
}

func TestOnlyOneSaveAtATime(t *testing.T) {
	store := &fakeStore{}
	r := &blockingRenderer{path: "/a.pdf", block: make(chan struct{})}
	s := newTestSession(store, &fakeSimplifier{}, r)
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("text")))

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background(), "")
		done <- err
	}()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.saving
	}, time.Second, time.Millisecond)

	_, err := s.Save(context.Background(), "")
	assert.ErrorIs(t, err, ErrSaveInFlight, "a second save must be turned away while the first is running")
	assert.ErrorIs(t, s.SimplifyText(context.Background(), nil), ErrSaveInFlight)
	assert.ErrorIs(t, s.BeginExtraction(context.Background(), pdfExtractor("other")), ErrSaveInFlight)

	close(r.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateSaved, s.State())
	assert.Equal(t, 1, store.count(), "exactly one document for the capture")
}

func TestLeaveGuardsUnsavedSimplification(t *testing.T) {
	s := newTestSession(&fakeStore{}, &fakeSimplifier{out: "easy"}, &fakeRenderer{path: "/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw")))
	require.NoError(t, s.SimplifyText(context.Background(), nil))

	assert.ErrorIs(t, s.Leave(), ErrUnsavedSimplification)

	_, err := s.Save(context.Background(), "")
	require.NoError(t, err)
	assert.NoError(t, s.Leave(), "leaving after save is fine")
}

func TestLeaveWithoutSimplificationNeedsNoGuard(t *testing.T) {
	s := newTestSession(&fakeStore{}, &fakeSimplifier{}, &fakeRenderer{})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw")))
	assert.NoError(t, s.Leave(), "raw extraction can be abandoned freely")
}

func TestSimplifyThenAbandonStoresNothing(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(store, &fakeSimplifier{out: "easy"}, &fakeRenderer{path: "/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw")))
	require.NoError(t, s.SimplifyText(context.Background(), nil))

	s.DiscardAndLeave()

	assert.Equal(t, 0, store.count())
	assert.ErrorIs(t, s.SimplifyText(context.Background(), nil), ErrSessionClosed)
	_, err := s.Save(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSaveAndLeave(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(store, &fakeSimplifier{out: "easy"}, &fakeRenderer{path: "/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw")))
	require.NoError(t, s.SimplifyText(context.Background(), nil))

	doc, err := s.SaveAndLeave(context.Background(), "Title")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)

	err = s.BeginExtraction(context.Background(), pdfExtractor("more"))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSaveAndLeaveStaysOpenOnFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("down")}
	s := newTestSession(store, &fakeSimplifier{out: "easy"}, &fakeRenderer{path: "/a.pdf"})
	require.NoError(t, s.BeginExtraction(context.Background(), pdfExtractor("raw")))
	require.NoError(t, s.SimplifyText(context.Background(), nil))

	_, err := s.SaveAndLeave(context.Background(), "")
	require.Error(t, err)

	store.err = nil
	_, err = s.Save(context.Background(), "")
	assert.NoError(t, err, "the session is still usable after a failed save-and-leave")
}

func TestOpenPrefersLocalArtifact(t *testing.T) {
	dir := t.TempDir()
	local := dir + "/doc.pdf"
	require.NoError(t, writeFile(local, "%PDF-1.4"))

	r := &fakeRenderer{path: "/rebuilt.pdf"}
	s := newTestSession(&fakeStore{}, &fakeSimplifier{}, r)

	path, err := s.Open(context.Background(), api.Document{Content: "text", FileURL: local}, prefs.Default())
	require.NoError(t, err)
	assert.Equal(t, local, path)
	assert.Equal(t, 0, r.calls)
}

func TestOpenRebuildsOnAnotherDevice(t *testing.T) {
	r := &fakeRenderer{path: "/rebuilt.pdf"}
	s := newTestSession(&fakeStore{}, &fakeSimplifier{}, r)

	path, err := s.Open(context.Background(), api.Document{
		Title:   "Letter",
		Content: "stored text",
		FileURL: "/some/other/device/doc.pdf",
	}, prefs.Default())
	require.NoError(t, err)
	assert.Equal(t, "/rebuilt.pdf", path)
	assert.Equal(t, 1, r.calls)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
