package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"

	"easyread/internal/ocr"
)

const rasterJPEGQuality = 85

// OCRPages rasterizes every page and runs the OCR engine over each,
// for scanned PDFs without a text layer. Page order is preserved.
// Library: github.com/gen2brain/go-fitz.
func OCRPages(ctx context.Context, engine ocr.Engine, data []byte) ([]string, error) {
	if engine == nil {
		return nil, ocr.ErrNotConfigured
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("rasterize pdf: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	pages := make([]string, 0, total)
	for n := 0; n < total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.Image(n)
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", n+1, err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: rasterJPEGQuality}); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", n+1, err)
		}

		text, err := engine.RecognizeImage(ctx, buf.Bytes(), "image/jpeg")
		if err != nil {
			return nil, fmt.Errorf("ocr page %d: %w", n+1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
