package service

import (
	"context"
	"os"
	"regexp"
	"strings"

	apperrors "printerbot-backend/internal/common/errors"
	"printerbot-backend/internal/common/logger"
	"printerbot-backend/internal/features/printing/models"
)

// jobIDRe is the only shape of job id ever handed to the spooler. Anything
// else is rejected before a subprocess is spawned.
var jobIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const noJobsText = "No jobs found"

type printService struct {
	storageDir    string
	guard         *PathGuard
	converter     Converter
	pages         PageCounter
	spooler       Spooler
	fileSizeLimit int64
	pageLimit     int
}

func NewPrintService(storageDir string, guard *PathGuard, converter Converter, pages PageCounter, spooler Spooler, fileSizeLimit int64, pageLimit int) PrintService {
	return &printService{
		storageDir:    storageDir,
		guard:         guard,
		converter:     converter,
		pages:         pages,
		spooler:       spooler,
		fileSizeLimit: fileSizeLimit,
		pageLimit:     pageLimit,
	}
}

// ProcessFile runs conversion and the page-limit check on a freshly
// downloaded file. On success the returned record points at the staged PDF
// awaiting the user's print/delete decision. Rejections clean up storage:
// the converted file and, when different, the original are removed.
func (s *printService) ProcessFile(ctx context.Context, path string) (*models.FileRecord, error) {
	rec := &models.FileRecord{
		StoragePath: path,
		State:       models.StateConverting,
	}

	converted, err := s.converter.Convert(ctx, path, s.storageDir)
	if err != nil {
		rec.State = models.StateConversionFailed
		s.removeQuietly(path)
		return nil, apperrors.NewConversionError(path, err)
	}

	rec.StoragePath = converted
	rec.State = models.StateConverted

	rec.PageCount = s.pages.CountPages(ctx, converted)
	rec.State = models.StatePageCounted

	if rec.PageCount > s.pageLimit {
		rec.State = models.StatePageLimitExceeded
		s.removeQuietly(converted)
		if converted != path {
			s.removeQuietly(path)
		}
		return nil, apperrors.NewPageLimitError(rec.PageCount, s.pageLimit)
	}

	rec.State = models.StateReadyForDecision
	logger.Info().
		Str("path", converted).
		Int("pages", rec.PageCount).
		Msg("File staged for decision")
	return rec, nil
}

// PrintFile submits a staged file to the spooler and returns its page
// count. The path must pass the guard first, see guardMiss for how a miss
// is classified.
func (s *printService) PrintFile(ctx context.Context, path string) (int, error) {
	if !s.guard.Validate(path) {
		return 0, s.guardMiss(path, "print")
	}

	pages := s.pages.CountPages(ctx, path)

	if err := s.spooler.Submit(ctx, path); err != nil {
		return 0, apperrors.NewSpoolerError("submit", err)
	}

	logger.Info().
		Str("path", path).
		Int("pages", pages).
		Str("state", string(models.StatePrinted)).
		Msg("File sent to spooler")
	return pages, nil
}

// DeleteFile removes a staged file. The second delete of the same path
// fails the guard's existence check and reports not-found.
func (s *printService) DeleteFile(ctx context.Context, path string) error {
	if !s.guard.Validate(path) {
		return s.guardMiss(path, "delete")
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			// Lost a race against another delete.
			return apperrors.NewNotFoundError("file")
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to remove file").
			WithDetail("path", path)
	}

	logger.Info().
		Str("path", path).
		Str("state", string(models.StateDeleted)).
		Msg("File deleted")
	return nil
}

// guardMiss classifies a guard rejection. A resolvable regular file that
// still failed the guard is a forged reference escaping the storage root
// and is reported as a security error; everything else is simply gone.
// Callers translate both to the same user-facing reply, so a forged path
// learns nothing about the filesystem.
func (s *printService) guardMiss(path, operation string) error {
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		logger.Warn().
			Str("path", path).
			Str("operation", operation).
			Msg("Request rejected by path guard")
		return apperrors.NewPathSecurityError(path)
	}
	return apperrors.NewNotFoundError("file")
}

// CancelJob validates the job id shape and asks the spooler to cancel it.
func (s *printService) CancelJob(ctx context.Context, jobID string) error {
	if !jobIDRe.MatchString(jobID) {
		return apperrors.NewInvalidJobIDError(jobID)
	}

	logger.Info().Str("job_id", jobID).Msg("Cancelling job")

	if err := s.spooler.Cancel(ctx, jobID); err != nil {
		return apperrors.NewSpoolerError("cancel", err)
	}
	return nil
}

// Status reports printer state and queue. The two queries fail
// independently: one failing must not blank out the other.
func (s *printService) Status(ctx context.Context) models.PrinterSnapshot {
	var snap models.PrinterSnapshot
	var errs []string

	if st, err := s.spooler.Status(ctx); err != nil {
		errs = append(errs, err.Error())
	} else {
		snap.StatusText = st
	}

	if q, err := s.spooler.Queue(ctx); err != nil {
		errs = append(errs, err.Error())
	} else {
		snap.QueueText = q
	}

	snap.Err = strings.Join(errs, "; ")
	return snap
}

// Pending lists not-yet-completed jobs.
func (s *printService) Pending(ctx context.Context) models.PrinterSnapshot {
	return s.jobListing(ctx, s.spooler.Pending)
}

// Completed lists recently completed jobs.
func (s *printService) Completed(ctx context.Context) models.PrinterSnapshot {
	return s.jobListing(ctx, s.spooler.Completed)
}

func (s *printService) jobListing(ctx context.Context, query func(context.Context) (string, error)) models.PrinterSnapshot {
	var snap models.PrinterSnapshot

	out, err := query(ctx)
	if err != nil {
		snap.Err = err.Error()
		return snap
	}

	if out == "" {
		out = noJobsText
	}
	snap.QueueText = out
	return snap
}

func (s *printService) removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Str("path", path).Msg("Cleanup failed")
	}
}
