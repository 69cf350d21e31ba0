package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var quoteReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
)

// Sanitize normalizes a raw content body for staging: HTML tags are
// stripped, curly quotes are straightened, non-ASCII characters are
// dropped, and runs of whitespace collapse to a single space.
func Sanitize(body string) string {
	text := stripHTML(body)
	text = quoteReplacer.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 128 {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// stripHTML returns the text content of body with markup removed. Input
// that is not HTML passes through untouched.
func stripHTML(body string) string {
	if !strings.Contains(body, "<") {
		return body
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	return doc.Text()
}
