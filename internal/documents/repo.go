package documents

import "context"

// DocumentsRepo defines persistence operations for documents. Every read
// and delete is scoped to the owner; a document belonging to another user
// is indistinguishable from one that does not exist.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, ownerID, documentID string) (Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)
	Delete(ctx context.Context, ownerID, documentID string) error
}
