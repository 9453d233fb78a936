// Package converter normalizes submitted documents to PDF by shelling out
// to libreoffice in headless mode.
package converter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"printerbot-backend/internal/common/logger"
)

type LibreOffice struct {
	// Binary is overridable so tests can point the converter at a stub.
	Binary string

	timeout time.Duration
}

func New(timeout time.Duration) *LibreOffice {
	return &LibreOffice{
		Binary:  "libreoffice",
		timeout: timeout,
	}
}

// Convert turns the file at path into a PDF inside outputDir and returns
// the resulting path. Files already ending in .pdf are returned unchanged
// without invoking the converter. On any failure the original path is
// returned together with the error; the input file is never removed here,
// cleanup is the caller's call.
//
// Success requires both a zero exit status and the expected output file on
// disk: libreoffice is known to exit zero for inputs it silently skips.
func (l *LibreOffice) Convert(ctx context.Context, path, outputDir string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return path, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path, fmt.Errorf("failed to resolve input path: %w", err)
	}
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return path, fmt.Errorf("failed to resolve output dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, l.Binary,
		"--headless", "--convert-to", "pdf", absPath, "--outdir", absOut)

	logger.Info().Str("path", absPath).Msg("Converting to pdf")

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return path, fmt.Errorf("conversion timed out after %s", l.timeout)
		}
		return path, fmt.Errorf("converter failed: %w", err)
	}

	base := filepath.Base(absPath)
	expected := filepath.Join(absOut, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if _, err := os.Stat(expected); err != nil {
		return path, fmt.Errorf("converter exited cleanly but produced no output: %w", err)
	}

	logger.Info().Str("path", absPath).Str("result", expected).Msg("Converted to pdf")
	return expected, nil
}
