package textextract

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// Restricted to languages common in the open-access corpora this
// pipeline targets; a smaller set keeps detection fast and accurate.
var detectorLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Dutch,
	lingua.Russian,
	lingua.Chinese,
	lingua.Japanese,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectLanguage returns the lowercase English name of the most likely
// language of text ("english", "spanish", ...), or "" when detection is
// inconclusive. Used as a stub hint when the AI response omits the
// language field.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectorLanguages...).
			Build()
	})

	const sampleSize = 4096
	if len(text) > sampleSize {
		text = text[:sampleSize]
	}

	language, ok := detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(language.String())
}
