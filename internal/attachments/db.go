package attachments

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/clock"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// DBStore keeps photo bytes inline in the attachments table.
type DBStore struct {
	db    *sql.DB
	clock clock.Clock
}

// NewDBStore returns a Store backed by db.
func NewDBStore(db *sql.DB, clk clock.Clock) *DBStore {
	return &DBStore{db: db, clock: clk}
}

func (s *DBStore) Put(ctx context.Context, uploaderID string, data []byte, mime string) (string, error) {
	id := uuid.NewString()
	err := store.CreateAttachment(ctx, s.db, model.Attachment{
		ID:         id,
		UploaderID: uploaderID,
		MIME:       mime,
		Data:       data,
		CreatedAt:  s.clock.Now(),
	})
	if err != nil {
		return "", err
	}
	return URI(id), nil
}

func (s *DBStore) Get(ctx context.Context, id string) (*model.Attachment, error) {
	return store.GetAttachment(ctx, s.db, id)
}

func (s *DBStore) Delete(ctx context.Context, uri string) error {
	id, ok := IDFromURI(uri)
	if !ok {
		return nil
	}
	return store.DeleteAttachment(ctx, s.db, id)
}
