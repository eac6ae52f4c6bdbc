package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

// ReceiptService stores receipt blobs referenced by reports
type ReceiptService interface {
	Upload(ctx context.Context, name string, content []byte) (entity.DocumentRef, error)
	Read(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

type receiptServiceImpl struct {
	files    port.FileStorage
	maxBytes int64
	allowed  map[string]bool
	logger   Logger
}

// NewReceiptService creates a new ReceiptService. allowedTypes lists the
// accepted MIME types; empty accepts everything.
func NewReceiptService(files port.FileStorage, maxBytes int64, allowedTypes []string, logger Logger) ReceiptService {
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = true
	}
	return &receiptServiceImpl{files: files, maxBytes: maxBytes, allowed: allowed, logger: logger}
}

// Upload stores content under a new id. The MIME type is sniffed from the bytes.
func (s *receiptServiceImpl) Upload(ctx context.Context, name string, content []byte) (entity.DocumentRef, error) {
	if len(content) == 0 {
		return entity.DocumentRef{}, &entity.ValidationError{Field: "file", Message: "is empty"}
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return entity.DocumentRef{}, &entity.ValidationError{Field: "file", Message: fmt.Sprintf("exceeds %d bytes", s.maxBytes)}
	}
	mt := mimetype.Detect(content)
	if !s.accepts(mt) {
		return entity.DocumentRef{}, &entity.ValidationError{Field: "file", Message: fmt.Sprintf("type %s is not accepted", mt.String())}
	}

	ref := entity.DocumentRef{
		ID:       uuid.NewString(),
		Name:     filepath.Base(name),
		MimeType: mt.String(),
		Size:     int64(len(content)),
	}
	if err := s.files.Save(ctx, ReceiptPath(ref.ID), content); err != nil {
		return entity.DocumentRef{}, fmt.Errorf("failed to store receipt: %w", err)
	}
	s.logger.Info("Receipt stored", "receipt_id", ref.ID, "mime_type", ref.MimeType, "size", ref.Size)
	return ref, nil
}

// accepts matches the detected type or one of its parents, e.g. a docx is a zip
func (s *receiptServiceImpl) accepts(mt *mimetype.MIME) bool {
	if len(s.allowed) == 0 {
		return true
	}
	for m := mt; m != nil; m = m.Parent() {
		for t := range s.allowed {
			if m.Is(t) {
				return true
			}
		}
	}
	return false
}

func (s *receiptServiceImpl) Read(ctx context.Context, id string) ([]byte, error) {
	content, err := s.files.Read(ctx, ReceiptPath(id))
	if err != nil {
		return nil, &entity.NotFoundError{Entity: "receipt", ID: id}
	}
	return content, nil
}

func (s *receiptServiceImpl) Delete(ctx context.Context, id string) error {
	return s.files.Delete(ctx, ReceiptPath(id))
}
