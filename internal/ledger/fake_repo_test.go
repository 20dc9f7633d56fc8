package ledger

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

type txMarker struct{}

// fakeRepo keeps rows in maps. WithTx holds the mutex for the whole callback
// and restores the snapshot when the callback fails.
type fakeRepo struct {
	mu     sync.Mutex
	items  map[string]model.Item
	claims map[string]model.Claim
	order  []string
	users  map[string]model.UserSummary
	fail   map[string]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:  map[string]model.Item{},
		claims: map[string]model.Claim{},
		users:  map[string]model.UserSummary{},
		fail:   map[string]error{},
	}
}

func (f *fakeRepo) addUser(id, name string) {
	f.users[id] = model.UserSummary{ID: id, FullName: name, Email: id + "@example.com"}
}

func (f *fakeRepo) addItem(id, ownerID string, status model.ItemStatus) {
	f.items[id] = model.Item{ID: id, OwnerID: ownerID, Title: "item " + id, FoundCity: "Ljubljana", Status: status}
}

func (f *fakeRepo) lock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

func (f *fakeRepo) item(id string) model.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

func (f *fakeRepo) claim(id string) model.Claim {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claims[id]
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	items, claims, order := maps.Clone(f.items), maps.Clone(f.claims), slices.Clone(f.order)
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		f.items, f.claims, f.order = items, claims, order
		return err
	}
	return nil
}

func (f *fakeRepo) GetItem(ctx context.Context, id string) (*model.Item, error) {
	defer f.lock(ctx)()
	if err := f.fail["GetItem"]; err != nil {
		return nil, err
	}
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeRepo) SetItemStatus(ctx context.Context, id string, status, expected model.ItemStatus, now time.Time) (bool, error) {
	defer f.lock(ctx)()
	if err := f.fail["SetItemStatus"]; err != nil {
		return false, err
	}
	item, ok := f.items[id]
	if !ok || item.Status != expected {
		return false, nil
	}
	item.Status = status
	item.UpdatedAt = now
	f.items[id] = item
	return true, nil
}

func (f *fakeRepo) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	defer f.lock(ctx)()
	c, ok := f.claims[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeRepo) HasPendingClaim(ctx context.Context, itemID, claimerID string) (bool, error) {
	defer f.lock(ctx)()
	for _, c := range f.claims {
		if c.ItemID == itemID && c.ClaimerID == claimerID && c.Status == model.ClaimStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateClaim(ctx context.Context, c model.Claim) error {
	defer f.lock(ctx)()
	if err := f.fail["CreateClaim"]; err != nil {
		return err
	}
	for _, other := range f.claims {
		if other.ItemID == c.ItemID && other.ClaimerID == c.ClaimerID && other.Status == model.ClaimStatusPending {
			return model.ErrDuplicatePendingClaim
		}
	}
	f.claims[c.ID] = c
	f.order = append(f.order, c.ID)
	return nil
}

func (f *fakeRepo) SetClaimStatus(ctx context.Context, id string, status, expected model.ClaimStatus, now time.Time) (bool, error) {
	defer f.lock(ctx)()
	if err := f.fail["SetClaimStatus"]; err != nil {
		return false, err
	}
	c, ok := f.claims[id]
	if !ok || c.Status != expected {
		return false, nil
	}
	if status == model.ClaimStatusApproved {
		for _, other := range f.claims {
			if other.ItemID == c.ItemID && other.Status == model.ClaimStatusApproved {
				return false, model.ErrItemNotApprovable
			}
		}
	}
	c.Status = status
	c.UpdatedAt = now
	f.claims[id] = c
	return true, nil
}

func (f *fakeRepo) RejectPendingClaims(ctx context.Context, itemID, exceptID string, now time.Time) (int64, error) {
	defer f.lock(ctx)()
	if err := f.fail["RejectPendingClaims"]; err != nil {
		return 0, err
	}
	var n int64
	for id, c := range f.claims {
		if c.ItemID == itemID && id != exceptID && c.Status == model.ClaimStatusPending {
			c.Status = model.ClaimStatusRejected
			c.UpdatedAt = now
			f.claims[id] = c
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ListClaimsForItem(ctx context.Context, itemID string) ([]model.ItemClaim, error) {
	defer f.lock(ctx)()
	var out []model.ItemClaim
	for _, id := range slices.Backward(f.order) {
		c := f.claims[id]
		if c.ItemID == itemID {
			out = append(out, model.ItemClaim{Claim: c, Claimer: f.users[c.ClaimerID]})
		}
	}
	return out, nil
}

func (f *fakeRepo) ListClaimsByClaimer(ctx context.Context, claimerID string) ([]model.MyClaim, error) {
	defer f.lock(ctx)()
	var out []model.MyClaim
	for _, id := range slices.Backward(f.order) {
		c := f.claims[id]
		if c.ClaimerID != claimerID {
			continue
		}
		item := f.items[c.ItemID]
		out = append(out, model.MyClaim{
			Claim:         c,
			ItemTitle:     item.Title,
			ItemStatus:    item.Status,
			ItemFoundCity: item.FoundCity,
			Finder:        f.users[item.OwnerID],
		})
	}
	return out, nil
}

type recordingHook struct {
	mu     sync.Mutex
	events []Approval
}

func (h *recordingHook) ClaimApproved(_ context.Context, a Approval) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, a)
}

func (h *recordingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
