package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/clock"
	"github.com/erazemk/najdeno/internal/model"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// setup returns a ledger over an item "item-1" owned by "finder" with two
// registered claimers.
func setup(t *testing.T) (*Ledger, *fakeRepo, *recordingHook) {
	t.Helper()
	repo := newFakeRepo()
	repo.addUser("finder", "Fiona Finder")
	repo.addUser("alice", "Alice")
	repo.addUser("bob", "Bob")
	repo.addItem("item-1", "finder", model.ItemStatusFound)

	hook := &recordingHook{}
	return New(repo, clock.NewFixed(now), WithApprovalHook(hook)), repo, hook
}

func submit(t *testing.T, l *Ledger, itemID, claimerID string) model.Claim {
	t.Helper()
	c, err := l.Submit(context.Background(), SubmitInput{
		ItemID:           itemID,
		ClaimerID:        claimerID,
		ProofDescription: "black wallet with a red stripe",
	})
	require.NoError(t, err)
	return c
}

func TestSubmit(t *testing.T) {
	l, repo, _ := setup(t)

	c, err := l.Submit(context.Background(), SubmitInput{
		ItemID:           "item-1",
		ClaimerID:        "alice",
		ProofDescription: "  it has my initials on the strap \n",
		ProofImages:      []string{"/api/attachments/a", "/api/attachments/b"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, model.ClaimStatusPending, c.Status)
	assert.Equal(t, "it has my initials on the strap", c.ProofDescription)
	assert.Equal(t, []string{"/api/attachments/a", "/api/attachments/b"}, c.ProofImages)
	assert.Equal(t, now, c.CreatedAt)
	assert.Equal(t, c, repo.claim(c.ID))
	assert.Equal(t, model.ItemStatusFound, repo.item("item-1").Status)

	// A rival claim on the same item is fine while it is still found.
	submit(t, l, "item-1", "bob")
}

func TestSubmitWithoutImages(t *testing.T) {
	l, _, _ := setup(t)

	c := submit(t, l, "item-1", "alice")
	assert.NotNil(t, c.ProofImages)
	assert.Empty(t, c.ProofImages)
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(repo *fakeRepo, l *Ledger)
		input   SubmitInput
		want    error
		kind    model.ErrorKind
	}{
		{
			name:  "missing proof",
			input: SubmitInput{ItemID: "item-1", ClaimerID: "alice", ProofDescription: "   "},
			want:  model.ErrProofRequired,
			kind:  model.KindInvalidOperation,
		},
		{
			name: "too many images",
			input: SubmitInput{ItemID: "item-1", ClaimerID: "alice", ProofDescription: "mine",
				ProofImages: []string{"1", "2", "3", "4"}},
			want: model.ErrTooManyProofImages,
			kind: model.KindInvalidOperation,
		},
		{
			name:  "unknown item",
			input: SubmitInput{ItemID: "nope", ClaimerID: "alice", ProofDescription: "mine"},
			want:  model.ErrItemUnavailable,
			kind:  model.KindNotFound,
		},
		{
			name:  "own item",
			input: SubmitInput{ItemID: "item-1", ClaimerID: "finder", ProofDescription: "mine"},
			want:  model.ErrOwnClaim,
			kind:  model.KindInvalidOperation,
		},
		{
			name: "own item that is already claimed",
			prepare: func(repo *fakeRepo, _ *Ledger) {
				repo.addItem("item-1", "finder", model.ItemStatusClaimed)
			},
			input: SubmitInput{ItemID: "item-1", ClaimerID: "finder", ProofDescription: "mine"},
			want:  model.ErrOwnClaim,
			kind:  model.KindInvalidOperation,
		},
		{
			name: "claimed item",
			prepare: func(repo *fakeRepo, _ *Ledger) {
				repo.addItem("item-1", "finder", model.ItemStatusClaimed)
			},
			input: SubmitInput{ItemID: "item-1", ClaimerID: "alice", ProofDescription: "mine"},
			want:  model.ErrItemUnavailable,
			kind:  model.KindNotFound,
		},
		{
			name: "resolved item",
			prepare: func(repo *fakeRepo, _ *Ledger) {
				repo.addItem("item-1", "finder", model.ItemStatusResolved)
			},
			input: SubmitInput{ItemID: "item-1", ClaimerID: "alice", ProofDescription: "mine"},
			want:  model.ErrItemUnavailable,
			kind:  model.KindNotFound,
		},
		{
			name: "duplicate pending claim",
			prepare: func(_ *fakeRepo, l *Ledger) {
				_, err := l.Submit(context.Background(), SubmitInput{ItemID: "item-1", ClaimerID: "alice", ProofDescription: "first"})
				if err != nil {
					panic(err)
				}
			},
			input: SubmitInput{ItemID: "item-1", ClaimerID: "alice", ProofDescription: "second"},
			want:  model.ErrDuplicatePendingClaim,
			kind:  model.KindConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, repo, _ := setup(t)
			if tt.prepare != nil {
				tt.prepare(repo, l)
			}
			before := len(repo.claims)

			_, err := l.Submit(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, model.KindOf(err))
			assert.Len(t, repo.claims, before)
		})
	}
}

func TestSubmitAfterRejection(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	first := submit(t, l, "item-1", "alice")
	require.NoError(t, l.Reject(ctx, first.ID, "finder"))

	second := submit(t, l, "item-1", "alice")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSubmitStorageFailure(t *testing.T) {
	l, repo, _ := setup(t)
	repo.fail["CreateClaim"] = errors.New("disk I/O error")

	_, err := l.Submit(context.Background(), SubmitInput{ItemID: "item-1", ClaimerID: "alice", ProofDescription: "mine"})
	require.Error(t, err)
	assert.Equal(t, model.KindStorageFailure, model.KindOf(err))
	assert.Empty(t, repo.claims)
}

func TestApprove(t *testing.T) {
	l, repo, hook := setup(t)
	ctx := context.Background()

	c1 := submit(t, l, "item-1", "alice")
	c2 := submit(t, l, "item-1", "bob")

	require.NoError(t, l.Approve(ctx, c1.ID, "finder"))

	assert.Equal(t, model.ItemStatusClaimed, repo.item("item-1").Status)
	assert.Equal(t, model.ClaimStatusApproved, repo.claim(c1.ID).Status)
	assert.Equal(t, model.ClaimStatusRejected, repo.claim(c2.ID).Status)

	require.Len(t, hook.events, 1)
	assert.Equal(t, Approval{
		ClaimID:    c1.ID,
		ItemID:     "item-1",
		FinderID:   "finder",
		ClaimerID:  "alice",
		Rejected:   1,
		ApprovedAt: now,
	}, hook.events[0])

	// The loser can no longer be approved and nothing changes.
	err := l.Approve(ctx, c2.ID, "finder")
	require.ErrorIs(t, err, model.ErrItemNotApprovable)
	assert.Equal(t, model.KindConflict, model.KindOf(err))
	assert.Equal(t, model.ClaimStatusApproved, repo.claim(c1.ID).Status)
	assert.Equal(t, model.ClaimStatusRejected, repo.claim(c2.ID).Status)
	assert.Equal(t, 1, hook.count())

	// New claims are refused once the item is claimed.
	_, err = l.Submit(ctx, SubmitInput{ItemID: "item-1", ClaimerID: "bob", ProofDescription: "really mine"})
	require.ErrorIs(t, err, model.ErrItemUnavailable)
}

func TestApproveIsIdempotent(t *testing.T) {
	l, repo, hook := setup(t)
	ctx := context.Background()

	c1 := submit(t, l, "item-1", "alice")
	require.NoError(t, l.Approve(ctx, c1.ID, "finder"))
	require.NoError(t, l.Approve(ctx, c1.ID, "finder"))

	assert.Equal(t, model.ClaimStatusApproved, repo.claim(c1.ID).Status)
	assert.Equal(t, 1, hook.count())
}

func TestApproveAuthorization(t *testing.T) {
	l, repo, hook := setup(t)
	ctx := context.Background()
	c1 := submit(t, l, "item-1", "alice")

	err := l.Approve(ctx, c1.ID, "alice")
	require.ErrorIs(t, err, model.ErrNotItemOwner)
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	err = l.Approve(ctx, "missing", "finder")
	require.ErrorIs(t, err, model.ErrClaimNotFound)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))

	assert.Equal(t, model.ItemStatusFound, repo.item("item-1").Status)
	assert.Equal(t, model.ClaimStatusPending, repo.claim(c1.ID).Status)
	assert.Zero(t, hook.count())
}

func TestApproveRejectedClaimRollsBack(t *testing.T) {
	l, repo, hook := setup(t)
	ctx := context.Background()

	c1 := submit(t, l, "item-1", "alice")
	require.NoError(t, l.Reject(ctx, c1.ID, "finder"))

	err := l.Approve(ctx, c1.ID, "finder")
	require.ErrorIs(t, err, model.ErrClaimNotPending)
	assert.Equal(t, model.KindConflict, model.KindOf(err))

	// The item update ran first and must have been undone.
	assert.Equal(t, model.ItemStatusFound, repo.item("item-1").Status)
	assert.Zero(t, hook.count())
}

func TestApproveRollsBackOnStorageFailure(t *testing.T) {
	l, repo, hook := setup(t)
	ctx := context.Background()

	c1 := submit(t, l, "item-1", "alice")
	c2 := submit(t, l, "item-1", "bob")
	repo.fail["RejectPendingClaims"] = errors.New("disk I/O error")

	err := l.Approve(ctx, c1.ID, "finder")
	require.Error(t, err)
	assert.Equal(t, model.KindStorageFailure, model.KindOf(err))

	assert.Equal(t, model.ItemStatusFound, repo.item("item-1").Status)
	assert.Equal(t, model.ClaimStatusPending, repo.claim(c1.ID).Status)
	assert.Equal(t, model.ClaimStatusPending, repo.claim(c2.ID).Status)
	assert.Zero(t, hook.count())

	delete(repo.fail, "RejectPendingClaims")
	require.NoError(t, l.Approve(ctx, c1.ID, "finder"))
	assert.Equal(t, model.ClaimStatusRejected, repo.claim(c2.ID).Status)
}

func TestConcurrentApprovals(t *testing.T) {
	l, repo, hook := setup(t)
	ctx := context.Background()

	const claimers = 12
	ids := make([]string, claimers)
	for i := range claimers {
		user := fmt.Sprintf("claimer-%d", i)
		repo.addUser(user, user)
		ids[i] = submit(t, l, "item-1", user).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, claimers)
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = l.Approve(ctx, id, "finder")
		}()
	}
	wg.Wait()

	var succeeded, approved, rejected int
	for i, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, model.ErrItemNotApprovable)
		}
		switch repo.claim(ids[i]).Status {
		case model.ClaimStatusApproved:
			approved++
			assert.NoError(t, err)
		case model.ClaimStatusRejected:
			rejected++
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, approved)
	assert.Equal(t, claimers-1, rejected)
	assert.Equal(t, model.ItemStatusClaimed, repo.item("item-1").Status)
	assert.Equal(t, 1, hook.count())
}

func TestReject(t *testing.T) {
	l, repo, hook := setup(t)
	ctx := context.Background()

	c1 := submit(t, l, "item-1", "alice")
	c2 := submit(t, l, "item-1", "bob")

	require.NoError(t, l.Reject(ctx, c1.ID, "finder"))
	assert.Equal(t, model.ClaimStatusRejected, repo.claim(c1.ID).Status)
	assert.Equal(t, model.ClaimStatusPending, repo.claim(c2.ID).Status)
	assert.Equal(t, model.ItemStatusFound, repo.item("item-1").Status)

	// Rejecting twice is harmless.
	require.NoError(t, l.Reject(ctx, c1.ID, "finder"))

	require.NoError(t, l.Approve(ctx, c2.ID, "finder"))
	err := l.Reject(ctx, c2.ID, "finder")
	require.ErrorIs(t, err, model.ErrClaimNotPending)
	assert.Equal(t, model.ClaimStatusApproved, repo.claim(c2.ID).Status)
	assert.Equal(t, 1, hook.count())

	err = l.Reject(ctx, c2.ID, "bob")
	require.ErrorIs(t, err, model.ErrNotItemOwner)

	err = l.Reject(ctx, "missing", "finder")
	require.ErrorIs(t, err, model.ErrClaimNotFound)
}

func TestListForItem(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	claims, err := l.ListForItem(ctx, "item-1", "finder")
	require.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Empty(t, claims)

	c1 := submit(t, l, "item-1", "alice")
	c2 := submit(t, l, "item-1", "bob")
	require.NoError(t, l.Reject(ctx, c1.ID, "finder"))

	claims, err = l.ListForItem(ctx, "item-1", "finder")
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, c2.ID, claims[0].ID)
	assert.Equal(t, "Bob", claims[0].Claimer.FullName)
	assert.Equal(t, c1.ID, claims[1].ID)
	assert.Equal(t, model.ClaimStatusRejected, claims[1].Status)

	_, err = l.ListForItem(ctx, "item-1", "alice")
	require.ErrorIs(t, err, model.ErrNotItemOwner)

	_, err = l.ListForItem(ctx, "missing", "finder")
	require.ErrorIs(t, err, model.ErrItemNotFound)
}

func TestListMine(t *testing.T) {
	l, repo, _ := setup(t)
	ctx := context.Background()
	repo.addItem("item-2", "bob", model.ItemStatusFound)

	claims, err := l.ListMine(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Empty(t, claims)

	c1 := submit(t, l, "item-1", "alice")
	c2 := submit(t, l, "item-2", "alice")
	submit(t, l, "item-1", "bob")
	require.NoError(t, l.Approve(ctx, c1.ID, "finder"))

	claims, err = l.ListMine(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, c2.ID, claims[0].ID)
	assert.Equal(t, "Bob", claims[0].Finder.FullName)
	assert.Equal(t, c1.ID, claims[1].ID)
	assert.Equal(t, model.ClaimStatusApproved, claims[1].Status)
	assert.Equal(t, model.ItemStatusClaimed, claims[1].ItemStatus)
	assert.Equal(t, "Fiona Finder", claims[1].Finder.FullName)
}

func TestResolveItem(t *testing.T) {
	l, repo, _ := setup(t)
	ctx := context.Background()

	err := l.ResolveItem(ctx, "item-1", "finder")
	require.ErrorIs(t, err, model.ErrItemNotClaimed)

	c1 := submit(t, l, "item-1", "alice")
	require.NoError(t, l.Approve(ctx, c1.ID, "finder"))

	err = l.ResolveItem(ctx, "item-1", "alice")
	require.ErrorIs(t, err, model.ErrNotItemOwner)

	require.NoError(t, l.ResolveItem(ctx, "item-1", "finder"))
	assert.Equal(t, model.ItemStatusResolved, repo.item("item-1").Status)
	assert.Equal(t, model.ClaimStatusApproved, repo.claim(c1.ID).Status)

	require.NoError(t, l.ResolveItem(ctx, "item-1", "finder"))

	err = l.ResolveItem(ctx, "missing", "finder")
	require.ErrorIs(t, err, model.ErrItemNotFound)
}
