package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/attachments"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// AttachmentsHandler serves stored proof photos.
type AttachmentsHandler struct {
	DB          *sql.DB
	Attachments attachments.Store
}

// Get handles GET /api/attachments/{id}. A photo is visible to its uploader
// and to the owner of an item whose claim references it.
func (h *AttachmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	info, err := store.GetAttachmentInfo(ctx, h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if info == nil {
		writeError(w, r, model.ErrAttachmentNotFound)
		return
	}

	caller := callerID(r)
	if info.UploaderID != caller {
		ok, err := store.IsAttachmentOfOwnedItem(ctx, h.DB, attachments.URI(id), caller)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ok {
			writeError(w, r, model.ErrForbiddenAttachment)
			return
		}
	}

	a, err := h.Attachments.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a == nil {
		writeError(w, r, model.ErrAttachmentNotFound)
		return
	}

	w.Header().Set("Content-Type", a.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(a.Data)
}
