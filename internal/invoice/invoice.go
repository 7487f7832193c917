// Package invoice stores rendered invoice documents on disk, grouped in one
// folder per event date and event type.
package invoice

import (
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultBaseDir is the directory invoices are written to when none is configured.
	DefaultBaseDir = "Rechnungen"

	dateLayout       = "2006-01-02"
	fallbackFileName = "Rechnung"
	fallbackType     = "Veranstaltung"
	pdfExtension     = ".pdf"
)

var (
	unsafeChars  = regexp.MustCompile(`[^0-9A-Za-z._-]+`)
	repeatedDash = regexp.MustCompile(`-+`)
	edgeJunk     = regexp.MustCompile(`^[.-]+|[.-]+$`)
)

// SaveRequest carries one base64-encoded invoice document.
type SaveRequest struct {
	InvoiceNumber string `json:"invoiceNumber"`
	FileName      string `json:"fileName"`
	PDFBase64     string `json:"pdfBase64"`
	EventName     string `json:"eventName"`
	EventDate     string `json:"eventDate"`
	EventType     string `json:"eventType"`
}

// Validate checks that the mandatory fields are present.
func (r SaveRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.InvoiceNumber) == "":
		return fmt.Errorf("%w: invoiceNumber is required", ErrInvalidInvoice)
	case strings.TrimSpace(r.FileName) == "":
		return fmt.Errorf("%w: fileName is required", ErrInvalidInvoice)
	case strings.TrimSpace(r.PDFBase64) == "":
		return fmt.Errorf("%w: pdfBase64 is required", ErrInvalidInvoice)
	}
	return nil
}

// SaveResult locates a stored invoice relative to the base directory.
type SaveResult struct {
	RelativePath string `json:"relativePath"`
	FileName     string `json:"fileName"`
}

// Store writes invoices below a base directory.
type Store struct {
	baseDir string
	clock   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used when a request has no event date.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string, opts ...Option) *Store {
	if strings.TrimSpace(baseDir) == "" {
		baseDir = DefaultBaseDir
	}
	s := &Store{
		baseDir: baseDir,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseDir returns the directory invoices are written to.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Save decodes the document and writes it to
// <baseDir>/<eventDate>-<eventType>/<fileName>.pdf, replacing any existing
// file with the same name.
func (s *Store) Save(req SaveRequest) (SaveResult, error) {
	if err := req.Validate(); err != nil {
		return SaveResult{}, err
	}

	content, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.PDFBase64))
	if err != nil {
		return SaveResult{}, fmt.Errorf("%w: pdfBase64 could not be decoded", ErrInvalidInvoice)
	}
	if len(content) == 0 {
		return SaveResult{}, fmt.Errorf("%w: document is empty", ErrInvalidInvoice)
	}

	fileName := sanitizeFileName(req.FileName)
	if !strings.HasSuffix(strings.ToLower(fileName), pdfExtension) {
		fileName += pdfExtension
	}
	folder := s.resolveEventDate(req.EventDate) + "-" + resolveEventType(req.EventType)

	dir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SaveResult{}, fmt.Errorf("create invoice folder: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), content, 0o644); err != nil {
		return SaveResult{}, fmt.Errorf("write invoice: %w", err)
	}

	return SaveResult{
		RelativePath: path.Join(folder, fileName),
		FileName:     fileName,
	}, nil
}

func (s *Store) resolveEventDate(raw string) string {
	if raw = strings.TrimSpace(raw); raw != "" {
		if d, err := time.Parse(dateLayout, raw); err == nil {
			return d.Format(dateLayout)
		}
	}
	return s.clock().Format(dateLayout)
}

func resolveEventType(raw string) string {
	if raw = strings.TrimSpace(raw); raw == "" {
		return fallbackType
	}
	if segment := sanitizeSegment(raw); segment != "" {
		return segment
	}
	return fallbackType
}

func sanitizeFileName(raw string) string {
	name := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		return fallbackFileName
	}
	if name = sanitizeSegment(name); name == "" {
		return fallbackFileName
	}
	return name
}

// sanitizeSegment strips accents and reduces the input to [0-9A-Za-z._-].
func sanitizeSegment(raw string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), raw)
	if err != nil {
		stripped = raw
	}
	out := unsafeChars.ReplaceAllString(stripped, "-")
	out = repeatedDash.ReplaceAllString(out, "-")
	return edgeJunk.ReplaceAllString(out, "")
}
