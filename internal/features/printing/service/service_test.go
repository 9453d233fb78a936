package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "printerbot-backend/internal/common/errors"
	"printerbot-backend/internal/features/printing/models"
)

// fakeConverter mimics the libreoffice adapter: pdf passthrough, otherwise
// an output file appears in outputDir.
type fakeConverter struct {
	fail  bool
	calls int
}

func (f *fakeConverter) Convert(ctx context.Context, path, outputDir string) (string, error) {
	f.calls++
	if f.fail {
		return path, errors.New("converter exited with status 1")
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return path, nil
	}

	base := filepath.Base(path)
	out := filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if err := os.WriteFile(out, []byte("%PDF-1.4"), 0o644); err != nil {
		return path, err
	}
	return out, nil
}

type fakeCounter struct {
	pages int
}

func (f *fakeCounter) CountPages(ctx context.Context, path string) int {
	return f.pages
}

type fakeSpooler struct {
	statusText    string
	queueText     string
	pendingText   string
	completedText string

	statusErr    error
	queueErr     error
	pendingErr   error
	completedErr error
	cancelErr    error
	submitErr    error

	submitted []string
	cancelled []string
}

func (f *fakeSpooler) Status(ctx context.Context) (string, error) {
	return f.statusText, f.statusErr
}

func (f *fakeSpooler) Queue(ctx context.Context) (string, error) {
	return f.queueText, f.queueErr
}

func (f *fakeSpooler) Pending(ctx context.Context) (string, error) {
	return f.pendingText, f.pendingErr
}

func (f *fakeSpooler) Completed(ctx context.Context) (string, error) {
	return f.completedText, f.completedErr
}

func (f *fakeSpooler) Cancel(ctx context.Context, jobID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, jobID)
	return nil
}

func (f *fakeSpooler) Submit(ctx context.Context, path string) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, path)
	return nil
}

type fixture struct {
	dir       string
	converter *fakeConverter
	counter   *fakeCounter
	spooler   *fakeSpooler
	svc       PrintService
}

func newFixture(t *testing.T, pages, pageLimit int) *fixture {
	t.Helper()

	dir := t.TempDir()
	guard, err := NewPathGuard(dir)
	require.NoError(t, err)

	f := &fixture{
		dir:       dir,
		converter: &fakeConverter{},
		counter:   &fakeCounter{pages: pages},
		spooler:   &fakeSpooler{},
	}
	f.svc = NewPrintService(dir, guard, f.converter, f.counter, f.spooler, 64*1024*1024, pageLimit)
	return f
}

func (f *fixture) stage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
	return path
}

func appCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	return appErr.Code
}

func TestProcessFileConvertsAndStages(t *testing.T) {
	f := newFixture(t, 3, 100)
	path := f.stage(t, "report.docx")

	rec, err := f.svc.ProcessFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, models.StateReadyForDecision, rec.State)
	assert.Equal(t, 3, rec.PageCount)
	assert.Equal(t, ".pdf", filepath.Ext(rec.StoragePath))
	assert.FileExists(t, rec.StoragePath)
	assert.Equal(t, 1, f.converter.calls)
}

func TestProcessFilePageLimitBoundary(t *testing.T) {
	// Exactly at the limit is accepted; the comparison is strictly greater.
	f := newFixture(t, 100, 100)
	path := f.stage(t, "exact.pdf")

	rec, err := f.svc.ProcessFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 100, rec.PageCount)
	assert.FileExists(t, path)
}

func TestProcessFilePageLimitExceeded(t *testing.T) {
	f := newFixture(t, 250, 100)
	path := f.stage(t, "thick.pdf")

	_, err := f.svc.ProcessFile(context.Background(), path)
	assert.Equal(t, apperrors.ErrCodePageLimitExceeded, appCode(t, err))
	assert.NoFileExists(t, path)
}

func TestProcessFilePageLimitExceededCleansBothFiles(t *testing.T) {
	f := newFixture(t, 250, 100)
	path := f.stage(t, "thick.docx")

	_, err := f.svc.ProcessFile(context.Background(), path)
	assert.Equal(t, apperrors.ErrCodePageLimitExceeded, appCode(t, err))

	// Converted output and the distinct original are both removed.
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, filepath.Join(f.dir, "thick.pdf"))
}

func TestProcessFileConversionFailure(t *testing.T) {
	f := newFixture(t, 3, 100)
	f.converter.fail = true
	path := f.stage(t, "broken.docx")

	_, err := f.svc.ProcessFile(context.Background(), path)
	assert.Equal(t, apperrors.ErrCodeConversionFailed, appCode(t, err))
	assert.NoFileExists(t, path)
}

func TestPrintFileSubmitsToSpooler(t *testing.T) {
	f := newFixture(t, 3, 100)
	path := f.stage(t, "doc.pdf")

	pages, err := f.svc.PrintFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{path}, f.spooler.submitted)
}

func TestPrintFileRejectsOutsidePath(t *testing.T) {
	f := newFixture(t, 3, 100)

	// An existing file outside the root is a forged reference.
	outside := filepath.Join(t.TempDir(), "outside.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	_, err := f.svc.PrintFile(context.Background(), outside)
	assert.Equal(t, apperrors.ErrCodePathSecurity, appCode(t, err))
	assert.Empty(t, f.spooler.submitted)
}

func TestPrintFileMissingReportsNotFound(t *testing.T) {
	f := newFixture(t, 3, 100)

	_, err := f.svc.PrintFile(context.Background(), filepath.Join(f.dir, "gone.pdf"))
	assert.Equal(t, apperrors.ErrCodeNotFound, appCode(t, err))
	assert.Empty(t, f.spooler.submitted)
}

func TestPrintFileSpoolerFailure(t *testing.T) {
	f := newFixture(t, 3, 100)
	f.spooler.submitErr = errors.New("lpr: no default destination")
	path := f.stage(t, "doc.pdf")

	_, err := f.svc.PrintFile(context.Background(), path)
	assert.Equal(t, apperrors.ErrCodeSpooler, appCode(t, err))
}

func TestDeleteFileTwice(t *testing.T) {
	f := newFixture(t, 3, 100)
	path := f.stage(t, "doc.pdf")

	require.NoError(t, f.svc.DeleteFile(context.Background(), path))
	assert.NoFileExists(t, path)

	err := f.svc.DeleteFile(context.Background(), path)
	assert.Equal(t, apperrors.ErrCodeNotFound, appCode(t, err))
}

func TestDeleteFileRejectsOutsidePath(t *testing.T) {
	f := newFixture(t, 3, 100)

	outside := filepath.Join(t.TempDir(), "precious.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	err := f.svc.DeleteFile(context.Background(), outside)
	assert.Equal(t, apperrors.ErrCodePathSecurity, appCode(t, err))
	assert.FileExists(t, outside)
}

func TestCancelJobValidatesID(t *testing.T) {
	f := newFixture(t, 3, 100)

	for _, id := range []string{"", "12 34", "job;rm -rf /", "job!", "../etc", "job\n2"} {
		err := f.svc.CancelJob(context.Background(), id)
		assert.Equal(t, apperrors.ErrCodeInvalidJobID, appCode(t, err), "id %q", id)
	}

	// Nothing reached the spooler.
	assert.Empty(t, f.spooler.cancelled)

	require.NoError(t, f.svc.CancelJob(context.Background(), "Printer-42_a"))
	assert.Equal(t, []string{"Printer-42_a"}, f.spooler.cancelled)
}

func TestCancelJobSpoolerFailure(t *testing.T) {
	f := newFixture(t, 3, 100)
	f.spooler.cancelErr = errors.New("cancel: job does not exist")

	err := f.svc.CancelJob(context.Background(), "42")
	assert.Equal(t, apperrors.ErrCodeSpooler, appCode(t, err))
}

func TestStatusSnapshot(t *testing.T) {
	f := newFixture(t, 3, 100)
	f.spooler.statusText = "printer HP is idle.\n"
	f.spooler.queueText = "no entries\n"

	snap := f.svc.Status(context.Background())
	assert.Equal(t, "printer HP is idle.\n", snap.StatusText)
	assert.Equal(t, "no entries\n", snap.QueueText)
	assert.Empty(t, snap.Err)
}

func TestStatusPartialFailure(t *testing.T) {
	f := newFixture(t, 3, 100)
	f.spooler.statusErr = errors.New("lpstat: command not found")
	f.spooler.queueText = "no entries\n"

	// One failing query must not blank out the other.
	snap := f.svc.Status(context.Background())
	assert.Empty(t, snap.StatusText)
	assert.Equal(t, "no entries\n", snap.QueueText)
	assert.Contains(t, snap.Err, "lpstat")
}

func TestPendingSubstitutesEmptyOutput(t *testing.T) {
	f := newFixture(t, 3, 100)

	snap := f.svc.Pending(context.Background())
	assert.Equal(t, "No jobs found", snap.QueueText)
	assert.Empty(t, snap.Err)
}

func TestCompletedListing(t *testing.T) {
	f := newFixture(t, 3, 100)
	f.spooler.completedText = "HP-1 user 1024 Mon\n"

	snap := f.svc.Completed(context.Background())
	assert.Equal(t, "HP-1 user 1024 Mon\n", snap.QueueText)
}

func TestPendingFailure(t *testing.T) {
	f := newFixture(t, 3, 100)
	f.spooler.pendingErr = errors.New("lpstat failed")

	snap := f.svc.Pending(context.Background())
	assert.Empty(t, snap.QueueText)
	assert.Contains(t, snap.Err, "lpstat")
}
