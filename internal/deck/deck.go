package deck

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/services"
)

const pdfMagic = "%PDF-"

// maxDeckBytes bounds how large a deck the pipeline will accept. Inline
// upload to the generator caps out well below this.
const maxDeckBytes = 64 << 20

// Deck is the raw slide document handed to the narrate stage. The pipeline
// treats the bytes opaquely; only the generator interprets them.
type Deck struct {
	Path     string
	Title    string
	MIMEType string
	SHA256   string
	Data     []byte
}

// Size returns the document length in bytes.
func (d *Deck) Size() int64 {
	if d == nil {
		return 0
	}
	return int64(len(d.Data))
}

// Load reads and validates a slide deck from disk.
func Load(path string) (*Deck, error) {
	expanded := strings.TrimSpace(path)
	if expanded == "" {
		return nil, fmt.Errorf("deck path is empty: %w", services.ErrValidation)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}
	return FromBytes(expanded, data)
}

// FromBytes validates deck bytes and builds the Deck record.
func FromBytes(path string, data []byte) (*Deck, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("deck %s is empty: %w", filepath.Base(path), services.ErrValidation)
	}
	if len(data) > maxDeckBytes {
		return nil, fmt.Errorf("deck %s exceeds %d MiB: %w", filepath.Base(path), maxDeckBytes>>20, services.ErrValidation)
	}

	mimeType := DetectMIME(data)
	if mimeType != "application/pdf" {
		return nil, fmt.Errorf("deck %s is not a PDF document (detected %s): %w", filepath.Base(path), mimeType, services.ErrValidation)
	}

	sum := sha256.Sum256(data)
	return &Deck{
		Path:     path,
		Title:    TitleFromPath(path),
		MIMEType: mimeType,
		SHA256:   hex.EncodeToString(sum[:]),
		Data:     data,
	}, nil
}

// DetectMIME sniffs the document type. PDF detection is by magic prefix;
// anything else falls back to stdlib content sniffing.
func DetectMIME(data []byte) string {
	if bytes.HasPrefix(data, []byte(pdfMagic)) {
		return "application/pdf"
	}
	return http.DetectContentType(data)
}

// TitleFromPath derives a human-readable session title from the deck
// filename.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled deck"
	}
	return base
}
