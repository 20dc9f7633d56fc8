package api

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/najdeno/internal/attachments"
	"github.com/erazemk/najdeno/internal/clock"
	"github.com/erazemk/najdeno/internal/ledger"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// ItemsHandler handles found-item endpoints.
type ItemsHandler struct {
	DB          *sql.DB
	Ledger      *ledger.Ledger
	Attachments attachments.Store
	Clock       clock.Clock
}

type createItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	FoundCity   string `json:"found_city"`
	FoundState  string `json:"found_state"`
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		jsonError(w, http.StatusBadRequest, "title required")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, model.Item{
		OwnerID:     callerID(r),
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		FoundCity:   strings.TrimSpace(req.FoundCity),
		FoundState:  strings.TrimSpace(req.FoundState),
		CreatedAt:   h.Clock.Now(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item posted", "item", item.ID, "owner", item.OwnerID)
	jsonResponse(w, http.StatusCreated, map[string]*model.Item{"item": item})
}

// Default and maximum page sizes for GET /api/items.
const (
	defaultItemLimit = 50
	maxItemLimit     = 100
)

// List handles GET /api/items. Filters: status (default found), category,
// state, city, search, limit and offset.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ItemFilter{
		Status:   model.ItemStatus(q.Get("status")),
		Category: strings.TrimSpace(q.Get("category")),
		State:    strings.TrimSpace(q.Get("state")),
		City:     strings.TrimSpace(q.Get("city")),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	if filter.Status == "" {
		filter.Status = model.ItemStatusFound
	}
	if !filter.Status.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	var ok bool
	if filter.Limit, ok = intParam(q.Get("limit"), defaultItemLimit, 1, maxItemLimit); !ok {
		jsonError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, ok = intParam(q.Get("offset"), 0, 0, math.MaxInt32); !ok {
		jsonError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	h.list(w, r, filter)
}

// intParam parses an optional integer query parameter within [lo, hi].
func intParam(raw string, def, lo, hi int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

// Mine handles GET /api/items/mine.
func (h *ItemsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.ItemFilter{OwnerID: callerID(r)})
}

func (h *ItemsHandler) list(w http.ResponseWriter, r *http.Request, filter store.ItemFilter) {
	items, err := store.ListItems(r.Context(), h.DB, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		writeError(w, r, model.ErrItemNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]*model.Item{"item": item})
}

type updateItemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Status      *string `json:"status"`
}

// Update handles PUT /api/items/{id}. Only the owner may edit the title,
// description and category.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != nil {
		jsonError(w, http.StatusBadRequest, "status changes only through claims")
		return
	}

	update := store.ItemUpdate{
		Title:       trimmed(req.Title),
		Description: trimmed(req.Description),
		Category:    trimmed(req.Category),
	}
	if update.Empty() {
		jsonError(w, http.StatusBadRequest, "no valid fields to update")
		return
	}
	if update.Title != nil && *update.Title == "" {
		jsonError(w, http.StatusBadRequest, "title required")
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := h.ownedItem(ctx, id, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}

	ok, err := store.UpdateItem(ctx, h.DB, id, update, h.Clock.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, model.ErrItemNotFound)
		return
	}

	item, err := store.GetItem(ctx, h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		writeError(w, r, model.ErrItemNotFound)
		return
	}

	slog.Info("item updated", "item", id)
	jsonResponse(w, http.StatusOK, map[string]any{"message": "item updated", "item": item})
}

// Delete handles DELETE /api/items/{id}. Claims on the item go with it, and
// so do their proof photos.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := h.ownedItem(ctx, id, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}

	claims, err := store.ListClaimsForItem(ctx, h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ok, err := store.DeleteItem(ctx, h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, model.ErrItemNotFound)
		return
	}

	if h.Attachments != nil {
		var uris []string
		for _, c := range claims {
			uris = append(uris, c.ProofImages...)
		}
		attachments.Discard(context.WithoutCancel(ctx), h.Attachments, uris)
	}

	slog.Info("item deleted", "item", id, "claims", len(claims))
	jsonMessage(w, "item deleted")
}

// ownedItem loads an item and checks that ownerID posted it.
func (h *ItemsHandler) ownedItem(ctx context.Context, id, ownerID string) (*model.Item, error) {
	item, err := store.GetItem(ctx, h.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.ErrItemNotFound
	}
	if item.OwnerID != ownerID {
		return nil, model.ErrNotItemOwner
	}
	return item, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// Resolve handles PUT /api/items/{id}/resolve, confirming the handoff of a
// claimed item.
func (h *ItemsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Ledger.ResolveItem(r.Context(), id, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("item resolved", "item", id)
	jsonMessage(w, "item resolved")
}
