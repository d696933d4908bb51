package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"easyread/internal/shared/metrics"
)

// Service contains business logic for documents.
type Service struct {
	Repo DocumentsRepo
}

// NewService constructs a Service.
func NewService(repo DocumentsRepo) *Service {
	return &Service{Repo: repo}
}

// CreateInput carries the caller-supplied fields for a new document.
type CreateInput struct {
	Title     string
	Content   string
	Type      string
	SourceTag string
	FileName  string
	FileURL   string
}

// Create validates and persists a document. Empty or whitespace-only
// title and content never reach the repository.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Document{}, errors.New("owner id required")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Document{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return Document{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if !ValidType(in.Type) {
		return Document{}, fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, in.Type)
	}
	if !ValidSourceTag(in.SourceTag) {
		return Document{}, fmt.Errorf("%w: unknown source tag %q", ErrInvalidInput, in.SourceTag)
	}

	doc := Document{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   in.Content,
		Type:      in.Type,
		SourceTag: in.SourceTag,
		FileName:  strings.TrimSpace(in.FileName),
		FileURL:   strings.TrimSpace(in.FileURL),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}
	metrics.IncDocumentsCreated()
	return doc, nil
}

// Get returns a single document scoped to its owner.
func (s *Service) Get(ctx context.Context, ownerID, documentID string) (Document, error) {
	if ownerID == "" {
		return Document{}, errors.New("owner id required")
	}
	if strings.TrimSpace(documentID) == "" {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, ownerID, documentID)
}

// List returns the owner's documents, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Document, error) {
	if ownerID == "" {
		return nil, errors.New("owner id required")
	}
	return s.Repo.ListByOwner(ctx, ownerID)
}

// Delete removes a document scoped to its owner.
func (s *Service) Delete(ctx context.Context, ownerID, documentID string) error {
	if ownerID == "" {
		return errors.New("owner id required")
	}
	if strings.TrimSpace(documentID) == "" {
		return ErrNotFound
	}
	return s.Repo.Delete(ctx, ownerID, documentID)
}
