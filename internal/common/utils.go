// Package common holds small helpers shared across pipeline stages:
// content hashing, URL sanitation, and deterministic local file naming.
package common

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// ContentHash computes the SHA256 hash of content and returns a hex string.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

var markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// SanitizeURL performs basic cleanup on URLs to handle common catalog
// inconsistencies: surrounding whitespace, markdown link wrappers, and
// trailing punctuation.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	for _, char := range []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"} {
		cleaned = strings.TrimSuffix(cleaned, char)
	}
	for _, char := range []string{"(", "[", "<", "\"", "'"} {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// ValidateURL reports whether a URL is a well-formed absolute http(s)
// URL the fetcher can act on.
func ValidateURL(rawURL string) error {
	if strings.Contains(rawURL, " ") {
		return fmt.Errorf("URL contains unencoded spaces")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URL does not parse: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	if strings.ContainsAny(parsed.Host, "{}[]<>\"'") {
		return fmt.Errorf("URL host contains invalid characters")
	}
	return nil
}

// FileNameForURL derives a deterministic local file name for a URL.
// The SHA256 prefix makes names collision-free by construction, so two
// distinct URLs never share a path and re-fetching the same URL always
// reuses the same path.
func FileNameForURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	prefix := fmt.Sprintf("%x", sum[:6])

	base := "document"
	if parsed, err := url.Parse(rawURL); err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "/" && name != "." {
			if unescaped, err := url.PathUnescape(name); err == nil {
				name = unescaped
			}
			base = sanitizeFileName(name)
		}
	}

	if !strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base += ".pdf"
	}
	return prefix + "_" + base
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitizeFileName(name string) string {
	cleaned := unsafeFileChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "._-")
	if cleaned == "" {
		return "document"
	}
	const maxLen = 120
	if len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen]
	}
	return cleaned
}
