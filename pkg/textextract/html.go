package textextract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// extractHTML distills the main article content from an HTML landing
// page. Readability finds the article body; when it cannot, a plain
// goquery pass over content-bearing tags is the fallback.
func extractHTML(data []byte, sourceURL string) (string, error) {
	parsedURL, err := url.Parse(sourceURL)
	if err != nil {
		parsedURL = &url.URL{}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(data), parsedURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, nil
	}

	return extractHTMLFallback(data)
}

func extractHTMLFallback(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	doc.Find("script,style,nav,footer,header").Remove()

	var sb strings.Builder
	doc.Find("h1,h2,h3,p,li").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	})

	return sb.String(), nil
}
