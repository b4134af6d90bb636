package textextract

import (
	"errors"
	"strings"
	"testing"

	"pdfharvest/models"
)

func newTestExtractor() *Extractor {
	return New(models.ExtractConfig{MaxPages: 5})
}

func TestExtractHTML(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head><title>Protein Folding Advances</title></head>
<body>
<nav>Home | About</nav>
<article>
<h1>Protein Folding Advances</h1>
<p>Recent work on structure prediction has transformed the field of
computational biology, with neural approaches reaching experimental accuracy
on many benchmark targets.</p>
<p>This survey reviews the methods behind those advances and the datasets
that made them possible.</p>
</article>
<footer>Copyright</footer>
</body>
</html>`

	text, err := newTestExtractor().Extract([]byte(html), "https://example.org/article")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(text, "structure prediction") {
		t.Errorf("Extract() missing article body, got: %q", text)
	}
	if strings.Contains(text, "Home | About") {
		t.Errorf("Extract() kept navigation chrome: %q", text)
	}
}

func TestExtractUnreadableFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty input", data: nil},
		{name: "binary junk", data: []byte{0x00, 0x01, 0x02, 0xff, 0xfe}},
		{name: "truncated pdf header", data: []byte("%PDF-1.7 garbage with no xref")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestExtractor().Extract(tt.data, "https://example.org/doc.pdf")
			if !errors.Is(err, ErrUnreadable) {
				t.Errorf("Extract() error = %v, want ErrUnreadable", err)
			}
		})
	}
}

func TestExtractEmptyContent(t *testing.T) {
	html := `<html><head><title>x</title></head><body><script>var x = 1;</script></body></html>`
	_, err := newTestExtractor().Extract([]byte(html), "https://example.org/empty")
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("Extract() error = %v, want ErrEmpty", err)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	html := `<html><body><p>Stable content for deterministic extraction checks.</p></body></html>`
	first, err := newTestExtractor().Extract([]byte(html), "https://example.org/a")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	second, err := newTestExtractor().Extract([]byte(html), "https://example.org/a")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if first != second {
		t.Error("Extract() produced different text for identical bytes")
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "english",
			text: "The quick brown fox jumps over the lazy dog in a study of canine reflexes.",
			want: "english",
		},
		{
			name: "spanish",
			text: "El estudio examina los efectos del cambio climático sobre la biodiversidad marina en el océano Atlántico.",
			want: "spanish",
		},
		{
			name: "empty",
			text: "   ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage() = %q, want %q", got, tt.want)
			}
		})
	}
}
