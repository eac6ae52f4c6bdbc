package render

import (
	"context"
	"fmt"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/application/service"
)

// StorageDocumentReader reads receipt bytes from file storage
type StorageDocumentReader struct {
	files port.FileStorage
}

// NewStorageDocumentReader creates a document reader
func NewStorageDocumentReader(files port.FileStorage) *StorageDocumentReader {
	return &StorageDocumentReader{files: files}
}

// ReadDocument returns the bytes of receipt id
func (r *StorageDocumentReader) ReadDocument(ctx context.Context, id string) ([]byte, error) {
	content, err := r.files.Read(ctx, service.ReceiptPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}
	return content, nil
}

var _ port.DocumentReader = (*StorageDocumentReader)(nil)
