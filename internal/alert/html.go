/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package alert

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	styleBlockRE  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptBlockRE = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)

	// Ordered title patterns, most common shape first. Evaluated in
	// sequence with early exit on the first non-empty capture.
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Breaking:\s*([^<\n\r]+)`),
		regexp.MustCompile(`(?i)🚨\s*Breaking:\s*([^<\n\r]+)`),
		regexp.MustCompile(`(?i)Alert[^:]*:\s*([^<\n\r]+)`),
	}

	// Ordered link patterns anchored on the "View Story" call to action.
	linkPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<a[^>]*href=["']([^"']*)["'][^>]*>[\s\S]*?View Story`),
		regexp.MustCompile(`(?i)href=["']([^"']*)["'][^>]*>[\s\S]*?View Story`),
		regexp.MustCompile(`(?i)View Story[^h]*href=["']([^"']*)["']`),
	}

	tagRE          = regexp.MustCompile(`<[^>]+>`)
	entityRE       = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
	whitespaceRE   = regexp.MustCompile(`\s+`)
	flatBreakingRE = regexp.MustCompile(`(?i)Breaking:\s*(.{10,200})`)
)

const genericAlertNotice = "New CryptoCraft Alert"

// firstMatch runs the patterns in order against content and returns the
// first non-empty capture group, or "" if none match.
func firstMatch(patterns []*regexp.Regexp, content string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(content); m != nil && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

// ExtractHTML recovers a headline and a "read more" link from an HTML alert
// body. The input is untrusted and frequently malformed, so extraction works
// by ordered pattern matching over the markup rather than structural
// parsing, degrading through fallbacks down to a generic notice.
func ExtractHTML(htmlContent string) string {
	// Classify on the original content: the marker image may sit inside
	// markup that the stripping below removes.
	symbol := Classify(htmlContent).Symbol()

	// Style and script blocks routinely contain words that collide with
	// the content patterns ("margin", "font-family"), so drop them first.
	stripped := styleBlockRE.ReplaceAllString(htmlContent, "")
	stripped = scriptBlockRE.ReplaceAllString(stripped, "")

	link := firstMatch(linkPatterns, stripped)
	if !isHTTPLink(link) {
		link = ""
	}

	if title := strings.TrimSpace(firstMatch(titlePatterns, stripped)); title != "" {
		return renderAlert(symbol, title, link)
	}

	// No title via patterns: flatten the markup to text and look for a
	// plausible "Breaking:" fragment in the running text.
	flat := flattenHTML(stripped)
	if m := flatBreakingRE.FindStringSubmatch(flat); m != nil {
		return renderAlert(symbol, strings.TrimSpace(m[1]), link)
	}

	return symbol + " " + genericAlertNotice
}

func renderAlert(symbol, title, link string) string {
	result := fmt.Sprintf("%s Breaking: %s", symbol, title)
	if link != "" {
		result += fmt.Sprintf("\n\n📖 [Read more](%s)", link)
	}
	return result
}

// flattenHTML strips all remaining tags and entities and collapses
// whitespace, leaving only the running text of the document.
func flattenHTML(content string) string {
	flat := tagRE.ReplaceAllString(content, "")
	flat = entityRE.ReplaceAllString(flat, "")
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(flat, " "))
}

func isHTTPLink(link string) bool {
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}
