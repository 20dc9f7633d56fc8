// Package ledger owns the claim lifecycle: submitting claims against found
// items, and the finder's approve or reject decision. Approval is the only
// operation that touches more than one row; it runs as a single store
// transaction so exactly one claim per item can ever be approved.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/clock"
	"github.com/erazemk/najdeno/internal/metrics"
	"github.com/erazemk/najdeno/internal/model"
)

// Repository is the durable state the ledger reads and conditionally writes.
// Lookups return nil without error when the row does not exist. Calls made
// with the context passed to a WithTx callback join that transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetItem(ctx context.Context, id string) (*model.Item, error)
	SetItemStatus(ctx context.Context, id string, status, expected model.ItemStatus, now time.Time) (bool, error)

	GetClaim(ctx context.Context, id string) (*model.Claim, error)
	HasPendingClaim(ctx context.Context, itemID, claimerID string) (bool, error)
	CreateClaim(ctx context.Context, c model.Claim) error
	SetClaimStatus(ctx context.Context, id string, status, expected model.ClaimStatus, now time.Time) (bool, error)
	RejectPendingClaims(ctx context.Context, itemID, exceptID string, now time.Time) (int64, error)

	ListClaimsForItem(ctx context.Context, itemID string) ([]model.ItemClaim, error)
	ListClaimsByClaimer(ctx context.Context, claimerID string) ([]model.MyClaim, error)
}

// Ledger implements the claim operations.
type Ledger struct {
	repo  Repository
	clock clock.Clock
	hook  ApprovalHook
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithApprovalHook sets the hook notified after each committed approval.
func WithApprovalHook(h ApprovalHook) Option {
	return func(l *Ledger) {
		if h != nil {
			l.hook = h
		}
	}
}

// New returns a Ledger over repo.
func New(repo Repository, clk clock.Clock, opts ...Option) *Ledger {
	l := &Ledger{
		repo:  repo,
		clock: clk,
		hook:  nopHook{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SubmitInput describes a new claim.
type SubmitInput struct {
	ItemID           string
	ClaimerID        string
	ProofDescription string
	ProofImages      []string
}

// Submit files a pending claim. The item keeps accepting rival claims until
// one of them is approved.
func (l *Ledger) Submit(ctx context.Context, in SubmitInput) (model.Claim, error) {
	claim, err := l.submit(ctx, in)
	if err != nil {
		metrics.RecordSubmission(string(model.KindOf(err)))
		return model.Claim{}, err
	}
	metrics.RecordSubmission("created")
	return claim, nil
}

func (l *Ledger) submit(ctx context.Context, in SubmitInput) (model.Claim, error) {
	desc := strings.TrimSpace(in.ProofDescription)
	if desc == "" {
		return model.Claim{}, model.ErrProofRequired
	}
	if len(in.ProofImages) > model.MaxProofImages {
		return model.Claim{}, model.ErrTooManyProofImages
	}

	now := l.clock.Now()
	claim := model.Claim{
		ID:               uuid.NewString(),
		ItemID:           in.ItemID,
		ClaimerID:        in.ClaimerID,
		ProofDescription: desc,
		ProofImages:      append([]string{}, in.ProofImages...),
		Status:           model.ClaimStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := l.repo.WithTx(ctx, func(txCtx context.Context) error {
		item, err := l.repo.GetItem(txCtx, in.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return model.ErrItemUnavailable
		}
		// Owners already know their item's status, so this check may precede
		// the status check without leaking anything.
		if item.OwnerID == in.ClaimerID {
			return model.ErrOwnClaim
		}
		if item.Status != model.ItemStatusFound {
			return model.ErrItemUnavailable
		}

		pending, err := l.repo.HasPendingClaim(txCtx, in.ItemID, in.ClaimerID)
		if err != nil {
			return err
		}
		if pending {
			return model.ErrDuplicatePendingClaim
		}

		return l.repo.CreateClaim(txCtx, claim)
	})
	if err != nil {
		return model.Claim{}, storageErr("submitting claim", err)
	}
	return claim, nil
}

// ListForItem returns every claim on an item. Only the item's owner may list them.
func (l *Ledger) ListForItem(ctx context.Context, itemID, requesterID string) ([]model.ItemClaim, error) {
	item, err := l.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, storageErr("getting item", err)
	}
	if item == nil {
		return nil, model.ErrItemNotFound
	}
	if item.OwnerID != requesterID {
		return nil, model.ErrNotItemOwner
	}

	claims, err := l.repo.ListClaimsForItem(ctx, itemID)
	if err != nil {
		return nil, storageErr("listing item claims", err)
	}
	if claims == nil {
		claims = []model.ItemClaim{}
	}
	return claims, nil
}

// ListMine returns the claims a user submitted.
func (l *Ledger) ListMine(ctx context.Context, claimerID string) ([]model.MyClaim, error) {
	claims, err := l.repo.ListClaimsByClaimer(ctx, claimerID)
	if err != nil {
		return nil, storageErr("listing claims", err)
	}
	if claims == nil {
		claims = []model.MyClaim{}
	}
	return claims, nil
}

// Approve accepts a claim. In one transaction the item moves found→claimed,
// the claim moves pending→approved and every other pending claim on the item
// is rejected. The item update is a compare-and-set and runs first, so of two
// racing approvals for the same item only one can proceed.
//
// Approving the claim that already won is a no-op success. Approving any
// other claim once the item left found fails with model.ErrItemNotApprovable.
func (l *Ledger) Approve(ctx context.Context, claimID, requesterID string) error {
	err := l.approve(ctx, claimID, requesterID)
	outcome := "ok"
	if err != nil {
		outcome = string(model.KindOf(err))
	}
	metrics.RecordDecision("approve", outcome)
	return err
}

func (l *Ledger) approve(ctx context.Context, claimID, requesterID string) error {
	claim, item, err := l.authorize(ctx, claimID, requesterID)
	if err != nil {
		return err
	}

	start := time.Now()
	now := l.clock.Now()
	var rejected int64
	var transitioned bool

	err = l.repo.WithTx(ctx, func(txCtx context.Context) error {
		// The closure may run again when the store retries a busy transaction.
		rejected, transitioned = 0, false

		ok, err := l.moveItem(txCtx, item.ID, model.ItemStatusFound, model.ItemStatusClaimed, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := l.repo.GetClaim(txCtx, claim.ID)
			if err != nil {
				return err
			}
			if current != nil && current.Status == model.ClaimStatusApproved {
				return nil
			}
			return model.ErrItemNotApprovable
		}

		ok, err = l.moveClaim(txCtx, claim.ID, model.ClaimStatusPending, model.ClaimStatusApproved, now)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrClaimNotPending
		}

		rejected, err = l.repo.RejectPendingClaims(txCtx, item.ID, claim.ID, now)
		if err != nil {
			return err
		}
		transitioned = true
		return nil
	})
	if err != nil {
		return storageErr("approving claim", err)
	}

	if transitioned {
		metrics.RecordApproval(time.Since(start), rejected)
		l.hook.ClaimApproved(ctx, Approval{
			ClaimID:    claim.ID,
			ItemID:     item.ID,
			FinderID:   item.OwnerID,
			ClaimerID:  claim.ClaimerID,
			Rejected:   rejected,
			ApprovedAt: now,
		})
	}
	return nil
}

// Reject declines a single claim with one conditional write. It never
// touches the item or sibling claims. Rejecting an already rejected claim is a
// no-op; an approved claim cannot be rejected.
func (l *Ledger) Reject(ctx context.Context, claimID, requesterID string) error {
	err := l.reject(ctx, claimID, requesterID)
	outcome := "ok"
	if err != nil {
		outcome = string(model.KindOf(err))
	}
	metrics.RecordDecision("reject", outcome)
	return err
}

func (l *Ledger) reject(ctx context.Context, claimID, requesterID string) error {
	claim, _, err := l.authorize(ctx, claimID, requesterID)
	if err != nil {
		return err
	}
	if claim.Status == model.ClaimStatusRejected {
		return nil
	}

	ok, err := l.moveClaim(ctx, claim.ID, claim.Status, model.ClaimStatusRejected, l.clock.Now())
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			return model.ErrClaimNotPending
		}
		return storageErr("rejecting claim", err)
	}
	if ok {
		return nil
	}

	// Lost a race with another decision; report what won.
	current, err := l.repo.GetClaim(ctx, claim.ID)
	if err != nil {
		return storageErr("rejecting claim", err)
	}
	if current != nil && current.Status == model.ClaimStatusRejected {
		return nil
	}
	return model.ErrClaimNotPending
}

// ResolveItem records the handoff of a claimed item (claimed→resolved).
// Only the item's owner may resolve it.
func (l *Ledger) ResolveItem(ctx context.Context, itemID, requesterID string) error {
	item, err := l.repo.GetItem(ctx, itemID)
	if err != nil {
		return storageErr("getting item", err)
	}
	if item == nil {
		return model.ErrItemNotFound
	}
	if item.OwnerID != requesterID {
		return model.ErrNotItemOwner
	}
	if item.Status == model.ItemStatusResolved {
		return nil
	}

	ok, err := l.moveItem(ctx, item.ID, model.ItemStatusClaimed, model.ItemStatusResolved, l.clock.Now())
	if err != nil {
		return storageErr("resolving item", err)
	}
	if !ok {
		return model.ErrItemNotClaimed
	}
	return nil
}

// authorize loads a claim and its item and checks that requesterID owns the item.
func (l *Ledger) authorize(ctx context.Context, claimID, requesterID string) (*model.Claim, *model.Item, error) {
	claim, err := l.repo.GetClaim(ctx, claimID)
	if err != nil {
		return nil, nil, storageErr("getting claim", err)
	}
	if claim == nil {
		return nil, nil, model.ErrClaimNotFound
	}

	item, err := l.repo.GetItem(ctx, claim.ItemID)
	if err != nil {
		return nil, nil, storageErr("getting item", err)
	}
	if item == nil {
		return nil, nil, model.ErrClaimNotFound
	}
	if item.OwnerID != requesterID {
		return nil, nil, model.ErrNotItemOwner
	}
	return claim, item, nil
}

// moveItem applies from→to if the transition table allows it and the row is
// still in from.
func (l *Ledger) moveItem(ctx context.Context, id string, from, to model.ItemStatus, now time.Time) (bool, error) {
	if !from.CanTransition(to) {
		return false, model.ErrInvalidTransition
	}
	return l.repo.SetItemStatus(ctx, id, to, from, now)
}

// moveClaim applies from→to if the transition table allows it and the row is
// still in from.
func (l *Ledger) moveClaim(ctx context.Context, id string, from, to model.ClaimStatus, now time.Time) (bool, error) {
	if !from.CanTransition(to) {
		return false, model.ErrInvalidTransition
	}
	return l.repo.SetClaimStatus(ctx, id, to, from, now)
}

// storageErr passes classified errors through and wraps everything else, which
// model.KindOf then reports as a storage failure.
func storageErr(op string, err error) error {
	var e *model.Error
	if errors.As(err, &e) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
