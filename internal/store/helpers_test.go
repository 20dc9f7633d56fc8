package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/najdeno/internal/model"
)

func mustUser(t *testing.T, db *sql.DB, email, name string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, model.User{Email: email, PasswordHash: "hash", FullName: name})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

func mustItem(t *testing.T, db *sql.DB, ownerID, title string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), db, model.Item{OwnerID: ownerID, Title: title, FoundCity: "Maribor"})
	if err != nil {
		t.Fatalf("CreateItem(%s): %v", title, err)
	}
	return item
}
