package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "printerbot-backend/internal/common/errors"
	"printerbot-backend/internal/features/printing/models"
	"printerbot-backend/internal/platform/telegram"
)

func TestParseAction(t *testing.T) {
	action, ok := parseAction("print /data/print/abc.pdf")
	require.True(t, ok)
	assert.Equal(t, models.ActionPrint, action.Kind)
	assert.Equal(t, "/data/print/abc.pdf", action.Path)

	action, ok = parseAction("delete /data/print/with space.pdf")
	require.True(t, ok)
	assert.Equal(t, models.ActionDelete, action.Kind)
	assert.Equal(t, "/data/print/with space.pdf", action.Path)
}

func TestParseActionRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "print", "print ", "explode /x", "wat"} {
		_, ok := parseAction(data)
		assert.False(t, ok, "data %q", data)
	}
}

func TestSplitCommand(t *testing.T) {
	cmd, args := splitCommand("/auth hunter2")
	assert.Equal(t, "/auth", cmd)
	assert.Equal(t, "hunter2", args)

	cmd, args = splitCommand("/start")
	assert.Equal(t, "/start", cmd)
	assert.Equal(t, "", args)

	cmd, args = splitCommand("/cancel@printer_bot  HP-42  ")
	assert.Equal(t, "/cancel", cmd)
	assert.Equal(t, "HP-42", args)
}

func TestJoinArgs(t *testing.T) {
	assert.Equal(t, "1234", joinArgs("12 34"))
	assert.Equal(t, "HP-42", joinArgs("  HP-42  "))
	assert.Equal(t, "", joinArgs(""))
}

func TestDescriptorFromDocument(t *testing.T) {
	msg := &telegram.Message{
		Document: &telegram.Document{
			FileID:   "doc-id",
			FileName: "report.docx",
			FileSize: 1000,
		},
	}

	desc, ok := descriptorFrom(msg)
	require.True(t, ok)
	assert.Equal(t, models.SourceDocument, desc.Kind)
	assert.Equal(t, "report.docx", desc.OriginalName)
	assert.Equal(t, int64(1000), desc.SizeBytes)
}

func TestDescriptorFromPhotoPicksLargest(t *testing.T) {
	msg := &telegram.Message{
		Photo: []telegram.PhotoSize{
			{FileID: "small", FileUniqueID: "u1", FileSize: 100},
			{FileID: "large", FileUniqueID: "u2", FileSize: 90000},
		},
	}

	desc, ok := descriptorFrom(msg)
	require.True(t, ok)
	assert.Equal(t, models.SourcePhoto, desc.Kind)
	assert.Equal(t, "large", desc.FileID)
	assert.Equal(t, "u2", desc.OriginalName)
}

func TestDescriptorFromEmptyMessage(t *testing.T) {
	_, ok := descriptorFrom(&telegram.Message{Text: "hello"})
	assert.False(t, ok)
}

func TestIntakeRejectionText(t *testing.T) {
	desc := models.FileDescriptor{SizeBytes: 100000000}

	err := apperrors.NewValidationError("size", "file is too large").
		WithDetail("limit", int64(67108864))
	assert.Equal(t, "File is too big (100000000 > 67108864)!", intakeRejectionText(desc, err))

	err = apperrors.NewValidationError("kind", "unsupported file source")
	assert.Equal(t, "Unsupported file type!", intakeRejectionText(desc, err))
}

func TestPipelineRejectionText(t *testing.T) {
	desc := models.FileDescriptor{OriginalName: "report.docx", SizeBytes: 1000}

	err := apperrors.NewConversionError("/x/report.docx", assert.AnError)
	assert.Equal(t, "Failed to convert file report.docx, size 1000!", pipelineRejectionText(desc, err))

	err = apperrors.NewPageLimitError(250, 100)
	assert.Equal(t, "Too many pages (250 > 100), file was not accepted.", pipelineRejectionText(desc, err))
}
