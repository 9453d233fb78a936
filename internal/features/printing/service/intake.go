package service

import (
	"path/filepath"

	"github.com/google/uuid"

	apperrors "printerbot-backend/internal/common/errors"
	"printerbot-backend/internal/features/printing/models"
)

// ValidateDescriptor checks what the transport declares about an inbound
// file. The declared size is a trust boundary: it comes from the transport
// and is not re-verified against the downloaded bytes.
func (s *printService) ValidateDescriptor(d models.FileDescriptor) error {
	if d.SizeBytes > s.fileSizeLimit {
		return apperrors.NewValidationError("size", "file is too large").
			WithDetail("size", d.SizeBytes).
			WithDetail("limit", s.fileSizeLimit)
	}

	switch d.Kind {
	case models.SourceDocument, models.SourcePhoto:
	default:
		return apperrors.NewValidationError("kind", "unsupported file source").
			WithDetail("kind", string(d.Kind))
	}

	return nil
}

// StorageName produces a collision-free name for a new file, keeping the
// original extension (possibly empty) so the converter can recognize the
// format. Random names also keep concurrent uploads of identically named
// files apart.
func (s *printService) StorageName(originalName string) string {
	return uuid.NewString() + filepath.Ext(originalName)
}

// StoragePath places a generated name inside the storage root.
func (s *printService) StoragePath(name string) string {
	return filepath.Join(s.storageDir, name)
}
