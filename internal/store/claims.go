package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// CreateClaim inserts a claim. A second pending claim for the same item and
// claimer violates idx_claims_pending_per_claimer and maps to
// model.ErrDuplicatePendingClaim.
func CreateClaim(ctx context.Context, db DBTX, c model.Claim) error {
	images, err := encodeImages(c.ProofImages)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO claims (id, item_id, claimer_id, proof_description, proof_images, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ItemID, c.ClaimerID, c.ProofDescription, images, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicatePendingClaim
		}
		return fmt.Errorf("creating claim: %w", err)
	}
	return nil
}

const claimColumns = `c.id, c.item_id, c.claimer_id, c.proof_description, c.proof_images, c.status, c.created_at, c.updated_at`

func scanClaim(row interface{ Scan(...any) error }, extra ...any) (*model.Claim, error) {
	c := &model.Claim{}
	var images string
	dest := append([]any{&c.ID, &c.ItemID, &c.ClaimerID, &c.ProofDescription, &images, &c.Status, &c.CreatedAt, &c.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &c.ProofImages); err != nil {
		return nil, fmt.Errorf("decoding proof images: %w", err)
	}
	if c.ProofImages == nil {
		c.ProofImages = []string{}
	}
	return c, nil
}

// GetClaim returns a claim by ID.
func GetClaim(ctx context.Context, db DBTX, id string) (*model.Claim, error) {
	c, err := scanClaim(db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims c WHERE c.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// HasPendingClaim reports whether claimerID already has a pending claim on itemID.
func HasPendingClaim(ctx context.Context, db DBTX, itemID, claimerID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE item_id = ? AND claimer_id = ? AND status = ?`,
		itemID, claimerID, string(model.ClaimStatusPending),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking pending claim: %w", err)
	}
	return count > 0, nil
}

// SetClaimStatus moves a claim to status only if it is currently in expected.
// It reports whether the row changed.
func SetClaimStatus(ctx context.Context, db DBTX, id string, status, expected model.ClaimStatus, now time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE claims SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(status), now, id, string(expected),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, model.ErrItemNotApprovable
		}
		return false, fmt.Errorf("updating claim status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating claim status: %w", err)
	}
	return n == 1, nil
}

// RejectPendingClaims rejects every pending claim on itemID except exceptID.
// Already rejected claims are left untouched.
func RejectPendingClaims(ctx context.Context, db DBTX, itemID, exceptID string, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE claims SET status = ?, updated_at = ?
		 WHERE item_id = ? AND id != ? AND status = ?`,
		string(model.ClaimStatusRejected), now, itemID, exceptID, string(model.ClaimStatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("rejecting competing claims: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rejecting competing claims: %w", err)
	}
	return n, nil
}

// ListClaimsForItem returns every claim on an item with the claimer's contact
// details, newest first.
func ListClaimsForItem(ctx context.Context, db DBTX, itemID string) ([]model.ItemClaim, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+claimColumns+`,
		        u.id, u.full_name, u.email, u.phone_number, u.rating
		 FROM claims c
		 JOIN users u ON u.id = c.claimer_id
		 WHERE c.item_id = ?
		 ORDER BY c.created_at DESC, c.rowid DESC`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item claims: %w", err)
	}
	defer rows.Close()

	var claims []model.ItemClaim
	for rows.Next() {
		var ic model.ItemClaim
		var phone sql.NullString
		c, err := scanClaim(rows,
			&ic.Claimer.ID, &ic.Claimer.FullName, &ic.Claimer.Email, &phone, &ic.Claimer.Rating)
		if err != nil {
			return nil, fmt.Errorf("scanning item claim: %w", err)
		}
		ic.Claim = *c
		ic.Claimer.Phone = phone.String
		claims = append(claims, ic)
	}
	return claims, rows.Err()
}

// ListClaimsByClaimer returns every claim a user submitted with the item and
// its finder, newest first.
func ListClaimsByClaimer(ctx context.Context, db DBTX, claimerID string) ([]model.MyClaim, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+claimColumns+`,
		        i.title, i.status, i.found_city, i.found_state,
		        f.id, f.full_name, f.rating
		 FROM claims c
		 JOIN items i ON i.id = c.item_id
		 JOIN users f ON f.id = i.user_id
		 WHERE c.claimer_id = ?
		 ORDER BY c.created_at DESC, c.rowid DESC`, claimerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing claims by claimer: %w", err)
	}
	defer rows.Close()

	var claims []model.MyClaim
	for rows.Next() {
		var mc model.MyClaim
		var city, state sql.NullString
		c, err := scanClaim(rows,
			&mc.ItemTitle, &mc.ItemStatus, &city, &state,
			&mc.Finder.ID, &mc.Finder.FullName, &mc.Finder.Rating)
		if err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		mc.Claim = *c
		mc.ItemFoundCity = city.String
		mc.ItemFoundState = state.String
		claims = append(claims, mc)
	}
	return claims, rows.Err()
}

func encodeImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("encoding proof images: %w", err)
	}
	return string(data), nil
}
