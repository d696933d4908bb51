package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"easyread/capture/api"
	"easyread/capture/extract"
	"easyread/capture/prefs"
)

// State names the capture session's position in the pipeline.
type State string

const (
	StateIdle        State = "idle"
	StateExtracting  State = "extracting"
	StateExtracted   State = "extracted"
	StateTranslating State = "translating"
	StateReady       State = "ready"
	StateSaved       State = "saved"
)

var (
	ErrExtractionInFlight    = errors.New("an extraction is already running")
	ErrSimplifyInFlight      = errors.New("a simplification is already running")
	ErrSaveInFlight          = errors.New("a save is already running")
	ErrNoContent             = errors.New("no readable text was found")
	ErrNotExtracted          = errors.New("nothing has been extracted yet")
	ErrEmptyContent          = errors.New("there is no content to save")
	ErrAlreadySaved          = errors.New("this capture has already been saved")
	ErrUnsavedSimplification = errors.New("the simplified text has not been saved")
	ErrSessionClosed         = errors.New("the capture session is closed")
)

// Store persists finished documents.
type Store interface {
	CreateDocument(ctx context.Context, in api.CreateDocumentInput) (api.Document, error)
}

// Simplifier rewrites raw text into Easy Read style.
type Simplifier interface {
	Simplify(ctx context.Context, text string, keepTerms []string) (string, error)
}

// Renderer produces a local PDF artifact and returns its path.
type Renderer interface {
	Render(ctx context.Context, title, text string, p prefs.Preferences) (string, error)
}

// ServiceClient binds an api.Client and a signed-in session to the
// pipeline's narrow Store and Simplifier interfaces.
type ServiceClient struct {
	Client  *api.Client
	Session *api.Session
}

func (s *ServiceClient) CreateDocument(ctx context.Context, in api.CreateDocumentInput) (api.Document, error) {
	return s.Client.CreateDocument(ctx, s.Session, in)
}

func (s *ServiceClient) Simplify(ctx context.Context, text string, keepTerms []string) (string, error) {
	return s.Client.Simplify(ctx, s.Session, text, keepTerms)
}

// Session drives one capture from extraction through optional
// simplification to a saved document. It is safe for concurrent use;
// results that land after the session moved on are discarded.
type Session struct {
	store      Store
	simplifier Simplifier
	renderer   Renderer
	prefs      prefs.Preferences

	mu         sync.Mutex
	state      State
	source     extract.Source
	extraction extract.Extraction
	simplified string
	hasSaved   bool
	saving     bool
	closed     bool
	generation int

	now func() time.Time
}

func NewSession(store Store, simplifier Simplifier, renderer Renderer, p prefs.Preferences) *Session {
	return &Session{
		store:      store,
		simplifier: simplifier,
		renderer:   renderer,
		prefs:      p.Normalized(),
		state:      StateIdle,
		now:        time.Now,
	}
}

// State reports the current pipeline state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Extraction returns the raw capture result, if any.
func (s *Session) Extraction() extract.Extraction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extraction
}

// Simplified returns the Easy Read text, if simplification succeeded.
func (s *Session) Simplified() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simplified
}

// BeginExtraction runs the extractor and stores its result. Only one
// extraction may run at a time. An extraction that finishes after the
// session was closed or discarded is dropped on the floor.
func (s *Session) BeginExtraction(ctx context.Context, ex extract.Extractor) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	switch s.state {
	case StateIdle, StateExtracted:
	case StateExtracting:
		s.mu.Unlock()
		return ErrExtractionInFlight
	case StateTranslating:
		s.mu.Unlock()
		return ErrSimplifyInFlight
	case StateReady:
		s.mu.Unlock()
		return ErrUnsavedSimplification
	default:
		s.mu.Unlock()
		return ErrAlreadySaved
	}
	s.state = StateExtracting
	gen := s.generation
	s.mu.Unlock()

	res, err := ex.Extract(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return ErrSessionClosed
	}
	if err != nil {
		s.state = StateIdle
		return err
	}
	if strings.TrimSpace(res.Text) == "" {
		s.state = StateIdle
		return ErrNoContent
	}
	s.source = ex.Source()
	s.extraction = res
	s.simplified = ""
	s.hasSaved = false
	s.state = StateExtracted
	return nil
}

// SimplifyText rewrites the extracted text. On failure the raw
// extraction stays intact and the session returns to Extracted, so
// the user can retry or save the raw text instead.
func (s *Session) SimplifyText(ctx context.Context, keepTerms []string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	switch s.state {
	case StateExtracted, StateReady:
	case StateTranslating:
		s.mu.Unlock()
		return ErrSimplifyInFlight
	default:
		s.mu.Unlock()
		return ErrNotExtracted
	}
	s.state = StateTranslating
	gen := s.generation
	text := s.extraction.Text
	s.mu.Unlock()

	simplified, err := s.simplifier.Simplify(ctx, text, keepTerms)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return ErrSessionClosed
	}
	if err != nil {
		s.state = StateExtracted
		return err
	}
	s.simplified = simplified
	s.hasSaved = false
	s.state = StateReady
	return nil
}

// Save renders the current content to a local PDF and persists it as
// a document. The simplified text wins when present; otherwise the
// raw extraction is saved. Only one save may run at a time. A failed
// render or store leaves the session exactly where it was.
func (s *Session) Save(ctx context.Context, title string) (api.Document, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return api.Document{}, ErrSessionClosed
	}
	if s.state == StateSaved {
		s.mu.Unlock()
		return api.Document{}, ErrAlreadySaved
	}
	if s.saving {
		s.mu.Unlock()
		return api.Document{}, ErrSaveInFlight
	}
	content := s.simplified
	fromTranslator := content != ""
	if !fromTranslator {
		content = s.extraction.Text
	}
	if strings.TrimSpace(content) == "" {
		s.mu.Unlock()
		return api.Document{}, ErrEmptyContent
	}
	if title == "" {
		title = s.extraction.SuggestedTitle
	}
	if title == "" {
		title = "Document " + s.now().Format("2006-01-02 15:04")
	}
	source := s.source
	p := s.prefs
	gen := s.generation
	s.saving = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	filePath, err := s.renderer.Render(ctx, title, content, p)
	if err != nil {
		return api.Document{}, fmt.Errorf("save: %w", err)
	}

	in := api.CreateDocumentInput{
		Title:     title,
		Content:   content,
		Type:      documentType(source),
		SourceTag: sourceTag(source, fromTranslator),
		FileName:  filepath.Base(filePath),
		FileURL:   filePath,
	}
	doc, err := s.store.CreateDocument(ctx, in)
	if err != nil {
		return api.Document{}, fmt.Errorf("save: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		return doc, ErrSessionClosed
	}
	s.state = StateSaved
	s.hasSaved = true
	return doc, nil
}

// Leave closes the session unless an unsaved simplification would be
// lost. Callers should fall back to SaveAndLeave or DiscardAndLeave
// when they get ErrUnsavedSimplification.
func (s *Session) Leave() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReady && !s.hasSaved {
		return ErrUnsavedSimplification
	}
	s.close()
	return nil
}

// DiscardAndLeave closes the session, dropping any unsaved work.
func (s *Session) DiscardAndLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
}

// SaveAndLeave saves first and closes only when the save succeeded,
// so a failure never loses the simplified text.
func (s *Session) SaveAndLeave(ctx context.Context, title string) (api.Document, error) {
	doc, err := s.Save(ctx, title)
	if err != nil {
		return api.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
	return doc, nil
}

// Open resolves a stored document to a local PDF path. The fileUrl
// recorded at save time only exists on the device that saved it; on
// any other device the artifact is rebuilt from the stored content.
func (s *Session) Open(ctx context.Context, doc api.Document, p prefs.Preferences) (string, error) {
	if doc.FileURL != "" {
		if _, err := os.Stat(doc.FileURL); err == nil {
			return doc.FileURL, nil
		}
	}
	if strings.TrimSpace(doc.Content) == "" {
		return "", ErrEmptyContent
	}
	path, err := s.renderer.Render(ctx, doc.Title, doc.Content, p)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	return path, nil
}

// close invalidates in-flight work. Caller holds the lock.
func (s *Session) close() {
	s.closed = true
	s.generation++
}

func documentType(src extract.Source) string {
	switch src {
	case extract.SourceScan:
		return "scan"
	case extract.SourceWeb:
		return "web"
	default:
		return "pdf"
	}
}

func sourceTag(src extract.Source, fromTranslator bool) string {
	if fromTranslator {
		return "translator"
	}
	switch src {
	case extract.SourceScan:
		return "scan"
	case extract.SourceWeb:
		return "url"
	default:
		return "upload"
	}
}
