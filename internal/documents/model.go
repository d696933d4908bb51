package documents

import "time"

// Document is a captured text owned by a user. Content holds exactly one
// payload: the raw extraction, or the simplified rewrite when the user
// simplified before saving. FileURL is a device-local artifact hint;
// readers must fall back to re-rendering from Content when it does not
// resolve.
type Document struct {
	ID        string
	OwnerID   string
	Title     string
	Content   string
	Type      string
	SourceTag string
	FileName  string
	FileURL   string
	CreatedAt time.Time
}

// Document types describe what the reader opens.
const (
	TypeScan = "scan"
	TypeWeb  = "web"
	TypePDF  = "pdf"
)

// Source tags describe where the content came from.
const (
	TagScan       = "scan"
	TagURL        = "url"
	TagUpload     = "upload"
	TagTranslator = "translator"
)

// ValidType reports whether t is a known document type.
func ValidType(t string) bool {
	switch t {
	case TypeScan, TypeWeb, TypePDF:
		return true
	}
	return false
}

// ValidSourceTag reports whether tag is a known source tag.
func ValidSourceTag(tag string) bool {
	switch tag {
	case TagScan, TagURL, TagUpload, TagTranslator:
		return true
	}
	return false
}
