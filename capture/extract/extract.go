package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"easyread/capture/api"
)

// Source identifies where captured text came from.
type Source string

const (
	SourceScan Source = "scan"
	SourcePDF  Source = "pdf"
	SourceWeb  Source = "web"
)

// Extraction is the raw capture result before any simplification.
type Extraction struct {
	Text           string
	SuggestedTitle string
}

// Extractor produces raw text from one capture source. A nil error
// with empty text means the source genuinely had no content.
type Extractor interface {
	Source() Source
	Extract(ctx context.Context) (Extraction, error)
}

// ScanExtractor sends a captured image through the OCR endpoint.
type ScanExtractor struct {
	Client    *api.Client
	Session   *api.Session
	FileName  string
	ImageData []byte

	now func() time.Time
}

func (e *ScanExtractor) Source() Source { return SourceScan }

func (e *ScanExtractor) Extract(ctx context.Context) (Extraction, error) {
	text, err := e.Client.ExtractScan(ctx, e.Session, e.FileName, e.ImageData)
	if err != nil {
		return Extraction{}, fmt.Errorf("scan extraction: %w", err)
	}
	clock := e.now
	if clock == nil {
		clock = time.Now
	}
	return Extraction{
		Text:           strings.TrimSpace(text),
		SuggestedTitle: "Scan " + clock().Format("2006-01-02 15:04"),
	}, nil
}

// PDFExtractor uploads a PDF for text-layer extraction with OCR
// fallback on the service side.
type PDFExtractor struct {
	Client   *api.Client
	Session  *api.Session
	FileName string
	Data     []byte

	// MaxUploadMB rejects oversized files before any upload happens.
	// Zero means no client-side ceiling.
	MaxUploadMB int
}

func (e *PDFExtractor) Source() Source { return SourcePDF }

func (e *PDFExtractor) Extract(ctx context.Context) (Extraction, error) {
	if e.MaxUploadMB > 0 && int64(len(e.Data)) > int64(e.MaxUploadMB)<<20 {
		return Extraction{}, fmt.Errorf("pdf %q is larger than the %d MB upload limit", e.FileName, e.MaxUploadMB)
	}
	res, err := e.Client.ExtractPDF(ctx, e.Session, e.FileName, e.Data)
	if err != nil {
		return Extraction{}, fmt.Errorf("pdf extraction: %w", err)
	}
	title := res.SuggestedTitle
	if title == "" {
		title = titleFromFileName(e.FileName)
	}
	return Extraction{
		Text:           strings.TrimSpace(res.Text),
		SuggestedTitle: title,
	}, nil
}

func titleFromFileName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
