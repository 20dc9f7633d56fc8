package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// AttachmentURIPrefix is the public path under which stored attachments are served.
const AttachmentURIPrefix = "/api/attachments/"

// CreateAttachment records an uploaded proof photo.
func CreateAttachment(ctx context.Context, db DBTX, a model.Attachment) error {
	var key sql.NullString
	if a.ObjectKey != "" {
		key = sql.NullString{String: a.ObjectKey, Valid: true}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO attachments (id, uploader_id, data, object_key, mime, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UploaderID, a.Data, key, a.MIME, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating attachment: %w", err)
	}
	return nil
}

// GetAttachment returns an attachment by ID.
func GetAttachment(ctx context.Context, db DBTX, id string) (*model.Attachment, error) {
	a := &model.Attachment{}
	var key sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, uploader_id, data, object_key, mime, created_at FROM attachments WHERE id = ?`, id,
	).Scan(&a.ID, &a.UploaderID, &a.Data, &key, &a.MIME, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting attachment: %w", err)
	}
	a.ObjectKey = key.String
	return a, nil
}

// GetAttachmentInfo returns an attachment's metadata without its bytes.
func GetAttachmentInfo(ctx context.Context, db DBTX, id string) (*model.Attachment, error) {
	a := &model.Attachment{}
	var key sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, uploader_id, object_key, mime, created_at FROM attachments WHERE id = ?`, id,
	).Scan(&a.ID, &a.UploaderID, &key, &a.MIME, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting attachment info: %w", err)
	}
	a.ObjectKey = key.String
	return a, nil
}

// DeleteAttachment removes an attachment.
func DeleteAttachment(ctx context.Context, db DBTX, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting attachment: %w", err)
	}
	return nil
}

// IsAttachmentOfOwnedItem reports whether uri is proof on a claim against an
// item owned by ownerID.
func IsAttachmentOfOwnedItem(ctx context.Context, db DBTX, uri, ownerID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM claims c
		 JOIN items i ON i.id = c.item_id
		 WHERE i.user_id = ?
		   AND EXISTS (SELECT 1 FROM json_each(c.proof_images) WHERE json_each.value = ?)`,
		ownerID, uri,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking attachment access: %w", err)
	}
	return count > 0, nil
}
