// Package textextract converts downloaded document bytes into plain
// text. Extraction is deterministic and never retried: the same bytes
// always produce the same text or the same failure.
package textextract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"pdfharvest/models"
)

// ErrUnreadable marks bytes that cannot be parsed as a supported
// document format.
var ErrUnreadable = errors.New("document could not be parsed")

// ErrEmpty marks a document that parsed but yielded no usable text.
var ErrEmpty = errors.New("document contains no extractable text")

// Extractor converts raw document bytes to plain text.
type Extractor struct {
	maxPages int
}

// New builds an extractor from extraction configuration.
func New(cfg models.ExtractConfig) *Extractor {
	maxPages := cfg.MaxPages
	if maxPages < 1 {
		maxPages = 5
	}
	return &Extractor{maxPages: maxPages}
}

// Extract converts document bytes to plain text. PDF documents are read
// up to the configured page limit; HTML landing pages fall back to
// main-content extraction. sourceURL is only a hint for HTML parsing.
func (e *Extractor) Extract(data []byte, sourceURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrUnreadable)
	}

	var text string
	var err error
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		text, err = e.extractPDF(data)
	case looksLikeHTML(data):
		text, err = extractHTML(data, sourceURL)
	default:
		return "", fmt.Errorf("%w: unrecognized format", ErrUnreadable)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.HasPrefix(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<head")) ||
		bytes.Contains(head, []byte("<body"))
}
