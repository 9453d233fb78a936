// Package bot binds the Telegram transport to the printing pipeline:
// command routing, file uploads and the inline print/delete decision.
package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "printerbot-backend/internal/common/errors"
	"printerbot-backend/internal/common/logger"
	authservice "printerbot-backend/internal/features/auth/service"
	"printerbot-backend/internal/features/printing/models"
	printservice "printerbot-backend/internal/features/printing/service"
	"printerbot-backend/internal/platform/telegram"
)

const (
	authPrompt     = `Please authorize by "/auth <password>".`
	pollRetryDelay = 3 * time.Second
)

type Bot struct {
	client   *telegram.Client
	auth     authservice.AuthService
	printing printservice.PrintService

	// Blocking external commands run on goroutines admitted through this
	// semaphore, so a slow conversion cannot stall everyone's status
	// queries.
	workers *semaphore.Weighted
}

func New(client *telegram.Client, auth authservice.AuthService, printing printservice.PrintService, workers int64) *Bot {
	return &Bot{
		client:   client,
		auth:     auth,
		printing: printing,
		workers:  semaphore.NewWeighted(workers),
	}
}

// Run long-polls for updates until the context is cancelled. Each update
// is handled on its own goroutine; a single user's failure never takes the
// loop down.
func (b *Bot) Run(ctx context.Context) error {
	logger.Info().Msg("Listening...")

	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := b.client.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("Failed to fetch updates")
			time.Sleep(pollRetryDelay)
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1

			if err := b.workers.Acquire(ctx, 1); err != nil {
				return err
			}
			go func(u telegram.Update) {
				defer b.workers.Release(1)
				b.handleUpdate(ctx, u)
			}(upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd telegram.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Int64("update_id", upd.UpdateID).
				Msg("Panic recovered while handling update")
			if chatID := updateChatID(upd); chatID != 0 {
				b.reply(ctx, chatID, "Something went wrong, please try again.")
			}
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleAction(ctx, upd.CallbackQuery)
	case upd.Message != nil && strings.HasPrefix(upd.Message.Text, "/"):
		b.handleCommand(ctx, upd.Message)
	case upd.Message != nil && (upd.Message.Document != nil || len(upd.Message.Photo) > 0):
		b.handleUpload(ctx, upd.Message)
	case upd.Message != nil:
		b.reply(ctx, upd.Message.Chat.ID, "Use commands")
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message) {
	cmd, args := splitCommand(msg.Text)
	userID := msg.From.ID
	chatID := msg.Chat.ID

	logger.Info().Str("command", cmd).Int64("user_id", userID).Msg("Command received")

	if cmd == "/auth" {
		b.cmdAuthorize(ctx, userID, chatID, args)
		return
	}

	if !b.auth.IsAuthorized(userID) {
		b.reply(ctx, chatID, authPrompt)
		return
	}

	switch cmd {
	case "/start":
		b.cmdStart(ctx, chatID)
	case "/pending":
		b.replySnapshot(ctx, chatID, b.printing.Pending(ctx))
	case "/completed":
		b.replySnapshot(ctx, chatID, b.printing.Completed(ctx))
	case "/cancel":
		b.cmdCancel(ctx, chatID, args)
	default:
		b.reply(ctx, chatID, "Use commands")
	}
}

func (b *Bot) cmdAuthorize(ctx context.Context, userID, chatID int64, args string) {
	switch b.auth.Authorize(userID, joinArgs(args)) {
	case authservice.Authorized:
		b.reply(ctx, chatID, "Now you can print files via sending.")
	case authservice.AlreadyAuthorized:
		b.reply(ctx, chatID, "You already authorized!")
	case authservice.WrongSecret:
		b.reply(ctx, chatID, "Wrong password!")
	}
}

func (b *Bot) cmdStart(ctx context.Context, chatID int64) {
	snap := b.printing.Status(ctx)

	msg := "You are authorized to print, just send a file here.\n"
	msg += "Current state:\n" + snap.StatusText + "\n"
	msg += "Printer queue:\n" + snap.QueueText
	if snap.Err != "" {
		msg += "\nSome printer queries failed: " + snap.Err
	}

	b.reply(ctx, chatID, msg)
}

func (b *Bot) cmdCancel(ctx context.Context, chatID int64, args string) {
	jobID := joinArgs(args)

	err := b.printing.CancelJob(ctx, jobID)
	if appErr, ok := apperrors.AsAppError(err); ok {
		if appErr.Code == apperrors.ErrCodeInvalidJobID {
			b.reply(ctx, chatID, fmt.Sprintf("Invalid job_id '%s'", jobID))
		} else {
			b.reply(ctx, chatID, "Cancel command failed")
		}
		return
	}

	b.reply(ctx, chatID, "Cancel command complete")
}

func (b *Bot) replySnapshot(ctx context.Context, chatID int64, snap models.PrinterSnapshot) {
	if snap.Err != "" {
		b.reply(ctx, chatID, "Spooler query failed: "+snap.Err)
		return
	}
	b.reply(ctx, chatID, snap.QueueText)
}

func (b *Bot) handleUpload(ctx context.Context, msg *telegram.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	logger.Info().Int64("user_id", userID).Msg("File upload")

	if !b.auth.IsAuthorized(userID) {
		b.reply(ctx, chatID, authPrompt)
		return
	}

	desc, ok := descriptorFrom(msg)
	if !ok {
		logger.Info().Int64("user_id", userID).Msg("Unknown message type")
		return
	}

	if err := b.printing.ValidateDescriptor(desc); err != nil {
		b.reply(ctx, chatID, intakeRejectionText(desc, err))
		return
	}

	rec := models.FileRecord{
		OriginalName: desc.OriginalName,
		SizeBytes:    desc.SizeBytes,
		Kind:         desc.Kind,
		State:        models.StateReceived,
	}

	progress, err := b.client.SendMessage(ctx, chatID, "Downloading file...")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to send progress message")
		return
	}

	rec.StoragePath = b.printing.StoragePath(b.printing.StorageName(desc.OriginalName))
	rec.State = models.StateDownloading
	logger.Debug().
		Str("path", rec.StoragePath).
		Str("state", string(rec.State)).
		Msg("Fetching file")

	file, err := b.client.GetFile(ctx, desc.FileID)
	if err == nil {
		err = b.client.DownloadFile(ctx, file.FilePath, rec.StoragePath)
	}
	if err != nil {
		logger.Error().Err(err).Str("file_id", desc.FileID).Msg("Download failed")
		b.edit(ctx, chatID, progress.MessageID, "Failed to download file!")
		return
	}

	if !strings.EqualFold(filepath.Ext(rec.StoragePath), ".pdf") {
		b.edit(ctx, chatID, progress.MessageID, "Converting to pdf...")
	}

	staged, err := b.printing.ProcessFile(ctx, rec.StoragePath)
	if err != nil {
		b.edit(ctx, chatID, progress.MessageID, pipelineRejectionText(desc, err))
		return
	}

	// The progress message served its purpose once the file is staged.
	if err := b.client.DeleteMessage(ctx, chatID, progress.MessageID); err != nil {
		logger.Warn().Err(err).Msg("Failed to delete progress message")
	}

	keyboard := [][]telegram.InlineKeyboardButton{
		{{Text: "Print", CallbackData: string(models.ActionPrint) + " " + staged.StoragePath}},
		{{Text: "Delete file", CallbackData: string(models.ActionDelete) + " " + staged.StoragePath}},
	}

	if _, err := b.client.SendMessageWithKeyboard(ctx, chatID,
		fmt.Sprintf("Num pages: %d", staged.PageCount), keyboard); err != nil {
		logger.Error().Err(err).Msg("Failed to send decision keyboard")
	}
}

func (b *Bot) handleAction(ctx context.Context, q *telegram.CallbackQuery) {
	logger.Info().Str("data", q.Data).Int64("user_id", q.From.ID).Msg("Button clicked")

	if q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID

	if !b.auth.IsAuthorized(q.From.ID) {
		b.reply(ctx, chatID, authPrompt)
		return
	}

	// Queries must be answered even when there is nothing to notify.
	if err := b.client.AnswerCallbackQuery(ctx, q.ID); err != nil {
		logger.Warn().Err(err).Msg("Failed to answer callback query")
	}

	action, ok := parseAction(q.Data)
	if !ok {
		b.edit(ctx, chatID, q.Message.MessageID, "WAT?")
		return
	}

	switch action.Kind {
	case models.ActionDelete:
		err := b.printing.DeleteFile(ctx, action.Path)
		switch {
		case err == nil:
			b.edit(ctx, chatID, q.Message.MessageID, "Deleted")
		case isRejected(err):
			b.edit(ctx, chatID, q.Message.MessageID, "File not found")
		default:
			logger.Error().Err(err).Str("path", action.Path).Msg("Delete failed")
			b.edit(ctx, chatID, q.Message.MessageID, "Failed to delete file")
		}

	case models.ActionPrint:
		_, err := b.printing.PrintFile(ctx, action.Path)
		switch {
		case err == nil:
			b.edit(ctx, chatID, q.Message.MessageID, "File was sent for printing!")
		case isRejected(err):
			b.edit(ctx, chatID, q.Message.MessageID, "File not found")
		default:
			logger.Error().Err(err).Str("path", action.Path).Msg("Print failed")
			b.edit(ctx, chatID, q.Message.MessageID, "Failed to send file for printing")
		}
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.client.SendMessage(ctx, chatID, text); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

func (b *Bot) edit(ctx context.Context, chatID, messageID int64, text string) {
	if err := b.client.EditMessageText(ctx, chatID, messageID, text); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to edit message")
	}
}

// descriptorFrom maps a Telegram message onto the intake descriptor. For
// photos the largest (last) size is taken; its unique id doubles as the
// name since photos carry none.
func descriptorFrom(msg *telegram.Message) (models.FileDescriptor, bool) {
	if msg.Document != nil {
		return models.FileDescriptor{
			FileID:       msg.Document.FileID,
			OriginalName: msg.Document.FileName,
			SizeBytes:    msg.Document.FileSize,
			Kind:         models.SourceDocument,
		}, true
	}

	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		return models.FileDescriptor{
			FileID:       photo.FileID,
			OriginalName: photo.FileUniqueID,
			SizeBytes:    photo.FileSize,
			Kind:         models.SourcePhoto,
		}, true
	}

	return models.FileDescriptor{}, false
}

// parseAction decodes an inline-button payload of the form
// "print <path>" / "delete <path>".
func parseAction(data string) (models.Action, bool) {
	parts := strings.SplitN(data, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		return models.Action{}, false
	}

	kind := models.ActionKind(parts[0])
	if kind != models.ActionPrint && kind != models.ActionDelete {
		return models.Action{}, false
	}

	return models.Action{Kind: kind, Path: parts[1]}, true
}

// splitCommand separates "/cmd rest of args" and strips a @botname suffix
// from the command.
func splitCommand(text string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)

	cmd := parts[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}

	args := ""
	if len(parts) == 2 {
		args = strings.TrimSpace(parts[1])
	}
	return cmd, args
}

// joinArgs collapses argument whitespace the way the command parser always
// has: "/cancel 12 34" cancels job "1234".
func joinArgs(args string) string {
	return strings.Join(strings.Fields(args), "")
}

func intakeRejectionText(desc models.FileDescriptor, err error) string {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return "File was not accepted."
	}

	if appErr.Details["field"] == "size" {
		return fmt.Sprintf("File is too big (%d > %v)!", desc.SizeBytes, appErr.Details["limit"])
	}
	return "Unsupported file type!"
}

func pipelineRejectionText(desc models.FileDescriptor, err error) string {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return "Failed to process file."
	}

	switch appErr.Code {
	case apperrors.ErrCodeConversionFailed:
		return fmt.Sprintf("Failed to convert file %s, size %d!", desc.OriginalName, desc.SizeBytes)
	case apperrors.ErrCodePageLimitExceeded:
		return fmt.Sprintf("Too many pages (%v > %v), file was not accepted.",
			appErr.Details["pages"], appErr.Details["limit"])
	default:
		return "Failed to process file."
	}
}

// isRejected folds the two guard-rejection shapes into one user-facing
// outcome: a forged path is answered exactly like a missing file.
func isRejected(err error) bool {
	appErr, ok := apperrors.AsAppError(err)
	return ok && (appErr.Code == apperrors.ErrCodeNotFound || appErr.IsSecurity())
}

func updateChatID(upd telegram.Update) int64 {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat.ID
	}
	return 0
}
