package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText collapses runs of whitespace into single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanHTML strips markup from an HTML fragment and returns its visible text.
// Scripts and styles are dropped. Input that fails to parse is returned as
// cleaned plain text.
func CleanHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return CleanText(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return CleanText(fragment)
	}
	doc.Find("script, style, noscript").Remove()
	return CleanText(doc.Find("body").Text())
}
