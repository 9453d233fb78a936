package service

import (
	"context"

	"printerbot-backend/internal/features/printing/models"
)

// Converter normalizes a document to PDF. On failure the original path
// comes back unchanged together with the error.
type Converter interface {
	Convert(ctx context.Context, path, outputDir string) (string, error)
}

// PageCounter probes a PDF for its page count, 0 when unknown.
type PageCounter interface {
	CountPages(ctx context.Context, path string) int
}

// Spooler is the external print-queue subsystem. Every query is
// independently fallible.
type Spooler interface {
	Status(ctx context.Context) (string, error)
	Queue(ctx context.Context) (string, error)
	Pending(ctx context.Context) (string, error)
	Completed(ctx context.Context) (string, error)
	Cancel(ctx context.Context, jobID string) error
	Submit(ctx context.Context, path string) error
}

// PrintService runs the intake -> conversion -> inspection -> print/delete
// pipeline and owns all spooler interactions.
type PrintService interface {
	// Intake
	ValidateDescriptor(d models.FileDescriptor) error
	StorageName(originalName string) string
	StoragePath(name string) string

	// Pipeline
	ProcessFile(ctx context.Context, path string) (*models.FileRecord, error)
	PrintFile(ctx context.Context, path string) (int, error)
	DeleteFile(ctx context.Context, path string) error
	CancelJob(ctx context.Context, jobID string) error

	// Spooler queries
	Status(ctx context.Context) models.PrinterSnapshot
	Pending(ctx context.Context) models.PrinterSnapshot
	Completed(ctx context.Context) models.PrinterSnapshot
}
