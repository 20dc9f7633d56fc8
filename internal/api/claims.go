package api

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"slices"

	"github.com/erazemk/najdeno/internal/attachments"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/ledger"
	"github.com/erazemk/najdeno/internal/model"
)

// maxClaimForm bounds the whole multipart body of a claim submission.
const maxClaimForm = (model.MaxProofImages + 1) * imaging.MaxUploadBytes

// ClaimsHandler handles the claim lifecycle endpoints.
type ClaimsHandler struct {
	Ledger      *ledger.Ledger
	Attachments attachments.Store
}

type submitClaimRequest struct {
	ProofDescription string `json:"proof_description"`
}

// Submit handles POST /api/items/{id}/claims. The body is either multipart
// with a proof_description field and up to three proof_images files, or JSON
// carrying only proof_description.
func (h *ClaimsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxClaimForm)
	ctx := r.Context()
	caller := callerID(r)

	var proof string
	var uris []string
	if isJSON(r) {
		var req submitClaimRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		proof = req.ProofDescription
	} else {
		if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				jsonError(w, http.StatusRequestEntityTooLarge, "upload too large")
				return
			}
			jsonError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		var err error
		uris, err = attachments.SaveProofs(ctx, h.Attachments, caller, r.MultipartForm.File["proof_images"])
		if err != nil {
			writeError(w, r, err)
			return
		}
		proof = r.FormValue("proof_description")
	}

	claim, err := h.Ledger.Submit(ctx, ledger.SubmitInput{
		ItemID:           r.PathValue("id"),
		ClaimerID:        caller,
		ProofDescription: proof,
		ProofImages:      uris,
	})
	if err != nil {
		attachments.Discard(context.WithoutCancel(ctx), h.Attachments, uris)
		writeError(w, r, err)
		return
	}

	slog.Info("claim submitted", "claim", claim.ID, "item", claim.ItemID, "claimer", caller, "images", len(uris))
	jsonResponse(w, http.StatusCreated, map[string]any{
		"message": "claim submitted",
		"claim":   claim,
	})
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// ListForItem handles GET /api/items/{id}/claims.
func (h *ClaimsHandler) ListForItem(w http.ResponseWriter, r *http.Request) {
	claims, err := h.Ledger.ListForItem(r.Context(), r.PathValue("id"), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string][]model.ItemClaim{"claims": claims})
}

// Mine handles GET /api/claims/mine, optionally narrowed by ?status=.
func (h *ClaimsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	status := model.ClaimStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	claims, err := h.Ledger.ListMine(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if status != "" {
		claims = slices.DeleteFunc(claims, func(c model.MyClaim) bool { return c.Status != status })
	}
	jsonResponse(w, http.StatusOK, map[string][]model.MyClaim{"claims": claims})
}

// Approve handles PUT /api/claims/{id}/approve.
func (h *ClaimsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Ledger.Approve(r.Context(), id, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("claim approved", "claim", id, "finder", callerID(r))
	jsonMessage(w, "claim approved")
}

// Reject handles PUT /api/claims/{id}/reject.
func (h *ClaimsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.Ledger.Reject(r.Context(), id, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("claim rejected", "claim", id, "finder", callerID(r))
	jsonMessage(w, "claim rejected")
}
