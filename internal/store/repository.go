package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// Repository adapts the query helpers to the claim ledger. Calls made with a
// context from WithTx run inside that transaction.
type Repository struct {
	db *sql.DB
}

// NewRepository returns a Repository backed by db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

func (r *Repository) GetItem(ctx context.Context, id string) (*model.Item, error) {
	return GetItem(ctx, conn(ctx, r.db), id)
}

func (r *Repository) SetItemStatus(ctx context.Context, id string, status, expected model.ItemStatus, now time.Time) (bool, error) {
	return SetItemStatus(ctx, conn(ctx, r.db), id, status, expected, now)
}

func (r *Repository) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	return GetClaim(ctx, conn(ctx, r.db), id)
}

func (r *Repository) HasPendingClaim(ctx context.Context, itemID, claimerID string) (bool, error) {
	return HasPendingClaim(ctx, conn(ctx, r.db), itemID, claimerID)
}

func (r *Repository) CreateClaim(ctx context.Context, c model.Claim) error {
	return CreateClaim(ctx, conn(ctx, r.db), c)
}

func (r *Repository) SetClaimStatus(ctx context.Context, id string, status, expected model.ClaimStatus, now time.Time) (bool, error) {
	return SetClaimStatus(ctx, conn(ctx, r.db), id, status, expected, now)
}

func (r *Repository) RejectPendingClaims(ctx context.Context, itemID, exceptID string, now time.Time) (int64, error) {
	return RejectPendingClaims(ctx, conn(ctx, r.db), itemID, exceptID, now)
}

func (r *Repository) ListClaimsForItem(ctx context.Context, itemID string) ([]model.ItemClaim, error) {
	return ListClaimsForItem(ctx, conn(ctx, r.db), itemID)
}

func (r *Repository) ListClaimsByClaimer(ctx context.Context, claimerID string) ([]model.MyClaim, error) {
	return ListClaimsByClaimer(ctx, conn(ctx, r.db), claimerID)
}
