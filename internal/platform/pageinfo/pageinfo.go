// Package pageinfo extracts page counts from PDF files. The primary probe
// shells out to pdfinfo (poppler-utils); when that is unavailable a native
// reader is tried. Either way this is a best-effort probe, callers must
// tolerate an undercount: 0 means "could not tell".
package pageinfo

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"printerbot-backend/internal/common/logger"
)

var digitsRe = regexp.MustCompile(`[0-9]+`)

type Inspector struct {
	// Binary is overridable so tests can point the probe at a stub.
	Binary string

	timeout time.Duration
}

func NewInspector(timeout time.Duration) *Inspector {
	return &Inspector{
		Binary:  "pdfinfo",
		timeout: timeout,
	}
}

// CountPages returns the page count of the PDF at path, or 0 when no probe
// can produce one.
func (i *Inspector) CountPages(ctx context.Context, path string) int {
	if n := i.countWithPdfinfo(ctx, path); n > 0 {
		return n
	}
	if n := countNative(path); n > 0 {
		return n
	}

	logger.Warn().Str("path", path).Msg("Could not determine page count")
	return 0
}

func (i *Inspector) countWithPdfinfo(ctx context.Context, path string) int {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, i.Binary, path)
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("pdfinfo probe failed")
		return 0
	}

	return parsePageCount(stdout.String())
}

// parsePageCount finds the Pages line of pdfinfo output and returns the
// first run of digits on it.
func parsePageCount(output string) int {
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, "Pages") {
			continue
		}
		match := digitsRe.FindString(line)
		if match == "" {
			return 0
		}
		n, err := strconv.Atoi(match)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// countNative reads the page tree directly. The reader panics on some
// malformed files, so the probe is fenced off.
func countNative(path string) (n int) {
	defer func() {
		if r := recover(); r != nil {
			n = 0
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	return reader.NumPage()
}
