package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"easyread/capture/api"
	"easyread/capture/prefs"
)

// Renderer turns captured text into a styled PDF on local disk.
type Renderer struct {
	Client      *api.Client
	Session     *api.Session
	ArtifactDir string
}

// Render builds the reader markup, converts it to PDF through the
// service, and writes the result under the artifact directory. It
// returns the path of the written file.
func (r *Renderer) Render(ctx context.Context, title, text string, p prefs.Preferences) (string, error) {
	page, err := BuildHTML(title, text, p)
	if err != nil {
		return "", fmt.Errorf("render markup: %w", err)
	}

	fileName := ArtifactFileName(title)
	pdf, err := r.Client.RenderPDF(ctx, r.Session, page, fileName)
	if err != nil {
		return "", fmt.Errorf("render convert: %w", err)
	}

	if err := os.MkdirAll(r.ArtifactDir, 0o700); err != nil {
		return "", fmt.Errorf("render write: %w", err)
	}
	path := uniquePath(r.ArtifactDir, fileName)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("render write: %w", err)
	}
	return path, nil
}

// BuildHTML produces a self-contained reader page with the display
// preferences inlined as styles.
func BuildHTML(title, text string, p prefs.Preferences) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text to render")
	}
	p = p.Normalized()

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", escapeHTML(title))
	fmt.Fprintf(&b,
		"<style>body{font-family:Arial,Helvetica,sans-serif;font-size:%dpx;line-height:%dpx;text-align:%s;margin:40px;}h1{font-size:%dpx;}</style>\n",
		p.FontSize, p.LineHeightPx(), p.TextAlignment, p.FontSize+8)
	b.WriteString("</head>\n<body>\n")
	if strings.TrimSpace(title) != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", escapeHTML(title))
	}
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, line := range lines {
			lines[i] = escapeHTML(strings.TrimSpace(line))
		}
		fmt.Fprintf(&b, "<p>%s</p>\n", strings.Join(lines, "<br>"))
	}
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

// ArtifactFileName derives a filesystem-safe .pdf name from a title.
func ArtifactFileName(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "document"
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return name + ".pdf"
}

// uniquePath suffixes the name until it does not collide with an
// existing artifact.
func uniquePath(dir, fileName string) string {
	path := filepath.Join(dir, fileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	base := strings.TrimSuffix(fileName, ".pdf")
	for i := 1; ; i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s-%d.pdf", base, i))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
	}
}
