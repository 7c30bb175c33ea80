package review

import (
	"context"

	"github.com/ledgerline/backend/internal/domain/review"
)

// DocumentExtractor is the OCR collaborator. Implementations parse a
// stored document's bytes into structured fields; a nil result or an
// error sends the document down the filename-and-hints fallback path.
type DocumentExtractor interface {
	Extract(ctx context.Context, fileName string, content []byte) (*review.ExtractedDocument, error)
}

// DocumentStore reads stored document objects for extraction. The S3
// object storage satisfies this.
type DocumentStore interface {
	Download(ctx context.Context, storageKey string) ([]byte, error)
}
