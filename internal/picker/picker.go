// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package picker resolves a user's file choice into an attachment descriptor.
//
// Only metadata is produced: name, size, MIME type, and a file:// locator.
// The first 512 bytes are read when the extension does not identify the type.
package picker

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jeranaias/filechat/internal/attachment"
)

// ErrPickCancelled is returned when the user dismisses the picker.
var ErrPickCancelled = errors.New("file pick cancelled")

// Errors reported for a path that cannot be attached.
var (
	ErrNotFound    = errors.New("file not found")
	ErrIsDirectory = errors.New("path is a directory")
	ErrBlocked     = errors.New("path is not allowed")
)

// Picker yields a descriptor for one chosen file.
type Picker interface {
	Pick(ctx context.Context) (attachment.Descriptor, error)
}

// PathError describes why a path was rejected.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// =============================================================================
// PATH RESOLUTION
// =============================================================================

// SECURITY: Never offer system areas or credential stores for upload.
var blockedUnixPrefixes = []string{"/proc/", "/sys/", "/dev/", "/etc/shadow", "/etc/sudoers"}

var blockedWindowsPrefixes = []string{`c:\windows\system32\config\`}

// sensitiveNames are base names and extensions that usually hold secrets.
var sensitiveNames = []string{".env", "id_rsa", "id_ed25519", ".pem", ".key", ".netrc", "credentials"}

// FromPath stats path and describes it. A leading "~/" expands to the home
// directory. Directories, missing files and sensitive paths are rejected.
func FromPath(path string) (attachment.Descriptor, error) {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, `"'`)
	if path == "" {
		return attachment.Descriptor{}, ErrPickCancelled
	}

	abs, err := expand(path)
	if err != nil {
		return attachment.Descriptor{}, &PathError{Path: path, Err: err}
	}
	if err := checkBlocked(abs); err != nil {
		return attachment.Descriptor{}, &PathError{Path: path, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return attachment.Descriptor{}, &PathError{Path: path, Err: ErrNotFound}
		}
		return attachment.Descriptor{}, &PathError{Path: path, Err: err}
	}
	if info.IsDir() {
		return attachment.Descriptor{}, &PathError{Path: path, Err: ErrIsDirectory}
	}

	return attachment.Descriptor{
		Name:           filepath.Base(abs),
		ByteSize:       info.Size(),
		MIMEType:       DetectMIME(abs),
		ContentLocator: Locator(abs),
	}, nil
}

func expand(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

func checkBlocked(abs string) error {
	normalized := abs
	prefixes := blockedUnixPrefixes
	if runtime.GOOS == "windows" {
		normalized = strings.ToLower(abs)
		prefixes = blockedWindowsPrefixes
	}
	for _, p := range prefixes {
		if strings.HasPrefix(normalized, p) {
			return fmt.Errorf("%w: protected system location", ErrBlocked)
		}
	}

	base := strings.ToLower(filepath.Base(abs))
	ext := strings.ToLower(filepath.Ext(abs))
	for _, s := range sensitiveNames {
		if base == s || (strings.HasPrefix(s, ".") && ext == s) {
			return fmt.Errorf("%w: file may contain credentials", ErrBlocked)
		}
	}
	return nil
}

// DetectMIME guesses the MIME type from the extension, then from content.
// Parameters such as "; charset=utf-8" are stripped.
func DetectMIME(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return stripParams(t)
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n == 0 {
		return ""
	}
	return stripParams(http.DetectContentType(buf[:n]))
}

func stripParams(t string) string {
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// Locator returns the file:// URL for an absolute path.
func Locator(abs string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// =============================================================================
// LINE PICKER
// =============================================================================

// LineFunc reads one line of input after showing prompt. It returns an error
// (for example io.EOF) when the user aborts.
type LineFunc func(prompt string) (string, error)

// LinePicker asks for a path on a line-oriented terminal.
type LinePicker struct {
	Prompt string
	Read   LineFunc
}

// NewLinePicker creates a picker that reads paths with read.
func NewLinePicker(read LineFunc) *LinePicker {
	return &LinePicker{Prompt: "File path: ", Read: read}
}

// Pick reads a path and describes it. An empty answer or a read error is a
// cancellation.
func (p *LinePicker) Pick(ctx context.Context) (attachment.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return attachment.Descriptor{}, ErrPickCancelled
	}
	line, err := p.Read(p.Prompt)
	if err != nil {
		return attachment.Descriptor{}, ErrPickCancelled
	}
	return FromPath(line)
}

// Static always returns the same path. It backs "/file <path>".
type Static string

// Pick describes the path.
func (s Static) Pick(ctx context.Context) (attachment.Descriptor, error) {
	return FromPath(string(s))
}
