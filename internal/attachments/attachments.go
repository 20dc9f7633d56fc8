// Package attachments stores proof photos and hands back the URIs that claims
// reference. Photos live either inline in SQLite or in an S3-compatible
// bucket; both keep a metadata row so access checks stay in one place.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// Store persists proof photos.
type Store interface {
	// Put stores a photo and returns its public URI.
	Put(ctx context.Context, uploaderID string, data []byte, mime string) (string, error)
	// Get returns an attachment with its bytes, or nil if it does not exist.
	Get(ctx context.Context, id string) (*model.Attachment, error)
	// Delete removes the attachment behind uri. Unknown URIs are ignored.
	Delete(ctx context.Context, uri string) error
}

// URI returns the public URI for an attachment ID.
func URI(id string) string {
	return store.AttachmentURIPrefix + id
}

// IDFromURI extracts the attachment ID from a URI produced by URI.
func IDFromURI(uri string) (string, bool) {
	id, ok := strings.CutPrefix(uri, store.AttachmentURIPrefix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// SaveProofs normalizes and stores uploaded proof photos in order. If any
// photo is rejected or fails to store, the ones already stored are removed.
func SaveProofs(ctx context.Context, st Store, uploaderID string, files []*multipart.FileHeader) ([]string, error) {
	if len(files) > model.MaxProofImages {
		return nil, model.ErrTooManyProofImages
	}

	uris := make([]string, 0, len(files))
	for i, fh := range files {
		uri, err := saveOne(ctx, st, uploaderID, fh)
		if err != nil {
			Discard(context.WithoutCancel(ctx), st, uris)
			var me *model.Error
			if errors.As(err, &me) {
				return nil, err
			}
			return nil, fmt.Errorf("storing proof image %d: %w", i+1, err)
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

func saveOne(ctx context.Context, st Store, uploaderID string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	photo, err := imaging.NormalizeProof(f)
	if err != nil {
		return "", model.NewError(model.KindInvalidOperation, fmt.Sprintf("proof image %q: %v", fh.Filename, err))
	}
	return st.Put(ctx, uploaderID, photo.Data, photo.MIME)
}

// Discard removes stored photos whose claim was never created. Failures are
// ignored; orphaned rows are only reachable by their uploader.
func Discard(ctx context.Context, st Store, uris []string) {
	for _, uri := range uris {
		_ = st.Delete(ctx, uri)
	}
}
