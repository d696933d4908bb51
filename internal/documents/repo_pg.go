package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    title,
    content,
    doc_type,
    source_tag,
    file_name,
    file_url,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		doc.Content,
		doc.Type,
		doc.SourceTag,
		nullableString(doc.FileName),
		nullableString(doc.FileURL),
		doc.CreatedAt,
	)
	return err
}

// GetByID fetches a document by ID scoped to its owner.
func (r *PGRepo) GetByID(ctx context.Context, ownerID, documentID string) (Document, error) {
	const query = `
SELECT id, owner_id, title, content, doc_type, source_tag, file_name, file_url, created_at
FROM documents
WHERE owner_id = $1 AND id = $2
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, ownerID, documentID))
}

// ListByOwner lists an owner's documents, newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	const query = `
SELECT id, owner_id, title, content, doc_type, source_tag, file_name, file_url, created_at
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC, id`

	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var doc Document
		var fileName sql.NullString
		var fileURL sql.NullString
		if err := rows.Scan(
			&doc.ID,
			&doc.OwnerID,
			&doc.Title,
			&doc.Content,
			&doc.Type,
			&doc.SourceTag,
			&fileName,
			&fileURL,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		if fileName.Valid {
			doc.FileName = fileName.String
		}
		if fileURL.Valid {
			doc.FileURL = fileURL.String
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Delete removes a document owned by ownerID. Zero affected rows means
// the document does not exist for this owner.
func (r *PGRepo) Delete(ctx context.Context, ownerID, documentID string) error {
	const query = `
DELETE FROM documents
WHERE owner_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, ownerID, documentID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row *sql.Row) (Document, error) {
	var doc Document
	var fileName sql.NullString
	var fileURL sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.Title,
		&doc.Content,
		&doc.Type,
		&doc.SourceTag,
		&fileName,
		&fileURL,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if fileName.Valid {
		doc.FileName = fileName.String
	}
	if fileURL.Valid {
		doc.FileURL = fileURL.String
	}
	return doc, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ DocumentsRepo = (*PGRepo)(nil)
