package fetch

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Thresholds for the JS-heaviness heuristic. Pages loading more scripts than
// MaxInlineScripts, or showing less visible text than MinVisibleTextChars,
// are assumed to render client-side.
const (
	MaxInlineScripts    = 20
	MinVisibleTextChars = 400
)

// frameworkRoots are mount points of common client-side frameworks. A present
// but empty root is a strong signal the page body arrives via JavaScript.
var frameworkRoots = []string{
	"#root",
	"#__next",
	"#app",
	"[data-reactroot]",
	"[ng-app]",
	"[ng-version]",
}

// LooksJSHeavy reports whether plain-fetched markup appears to need
// client-side rendering, with a short reason for logs. The rules, in order:
// script count above MaxInlineScripts, a noscript element advising that
// JavaScript is required, an empty framework mount point, or visible text
// below MinVisibleTextChars.
func LooksJSHeavy(html string) (bool, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, ""
	}

	if n := doc.Find("script").Length(); n > MaxInlineScripts {
		return true, fmt.Sprintf("%d script tags", n)
	}

	if hasNoscriptAdvisory(doc) {
		return true, "noscript javascript advisory"
	}

	for _, sel := range frameworkRoots {
		root := doc.Find(sel).First()
		if root.Length() > 0 && strings.TrimSpace(root.Text()) == "" {
			return true, "empty " + sel + " mount point"
		}
	}

	text := visibleText(doc)
	if n := utf8.RuneCountInString(text); n < MinVisibleTextChars {
		return true, fmt.Sprintf("only %d visible characters", n)
	}

	return false, ""
}

func hasNoscriptAdvisory(doc *goquery.Document) bool {
	advisory := false
	doc.Find("noscript").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.ToLower(s.Text())
		if strings.Contains(t, "enable javascript") ||
			strings.Contains(t, "javascript is required") ||
			strings.Contains(t, "javascript is disabled") {
			advisory = true
			return false
		}
		return true
	})
	return advisory
}

// visibleText returns the page's text content with script, style, noscript,
// and template subtrees dropped and whitespace collapsed. It mutates the
// document, so callers must run element checks first.
func visibleText(doc *goquery.Document) string {
	doc.Find("script,style,noscript,template").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}
