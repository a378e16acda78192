package integration

import (
	"context"
	"errors"
)

var (
	ErrBackendUnavailable     = errors.New("integration: commerce backend temporarily unavailable")
	ErrBackendRequestFailed   = errors.New("integration: commerce backend request failed")
	ErrBackendInvalidResponse = errors.New("integration: invalid commerce backend response")
	ErrBackendRejected        = errors.New("integration: commerce backend rejected the request")
	ErrUploadTimedOut         = errors.New("integration: staged upload timed out waiting for processing")
	ErrUploadFailed           = errors.New("integration: staged upload processing failed")
)

// VariantStock is one branch's stock declaration for a single size.
type VariantStock struct {
	BranchID string
	Size     string
	Stock    int
}

// ProductPublication is the complete payload the workflow hands to the
// Publisher once every branch has confirmed. Reference already carries the
// version suffix when the raw reference was published before.
type ProductPublication struct {
	Description string
	Reference   string
	Price       int64
	Category    string
	Media       MediaPayload
	Variants    []VariantStock
}

// Publisher pushes a confirmed product and its per-location inventory to the
// commerce backend.
type Publisher interface {
	// Publish creates the product with one variant per unique size, then sets
	// inventory per branch location. A step-1 failure aborts; step-2 failures
	// are best effort and do not fail the publish.
	Publish(ctx context.Context, pub *ProductPublication) error
}

// StagedUploader pushes a binary asset through the backend's staged-upload
// protocol and resolves its final URL.
type StagedUploader interface {
	UploadStagedFile(ctx context.Context, media MediaPayload, filename string) (string, error)
}
