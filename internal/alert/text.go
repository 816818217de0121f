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

var urlRE = regexp.MustCompile(`https?://[^\s]+`)

// Tokens that mark a line as styling noise leaked into the text part.
var noiseTokens = []string{
	"font-family", "margin", "padding", "css", "style", "mso-", "webkit",
}

// Tokens that mark the start of the footer, where collection stops.
var footerTokens = []string{
	"unsubscribe", "contact", "opted", "view story",
}

const (
	maxAlertLines     = 5
	textFallbackLimit = 500
)

// ExtractText recovers alert content from a plain-text body. Text bodies
// carry no impact marker, so the default symbol is always used. Lines are
// collected from the first "Breaking:" marker up to the footer, and the
// first URL anywhere in the text becomes the read-more link.
func ExtractText(textContent string) string {
	symbol := ImpactUnknown.Symbol()

	var collected []string
	foundBreaking := false

	for _, line := range strings.Split(textContent, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, noiseTokens) {
			continue
		}

		if strings.Contains(line, "Breaking:") {
			foundBreaking = true
			collected = append(collected, symbol+" "+line)
			continue
		}
		if foundBreaking && len(line) > 10 {
			if containsAny(lower, footerTokens) {
				break
			}
			collected = append(collected, line)
			if len(collected) >= maxAlertLines {
				break
			}
		}
	}

	if len(collected) > 0 {
		result := strings.Join(collected, "\n")
		if url := urlRE.FindString(textContent); url != "" {
			result += fmt.Sprintf("\n\n📖 [Read more](%s)", url)
		}
		return result
	}

	// No alert marker at all: hand back the start of the raw text.
	if runes := []rune(textContent); len(runes) > textFallbackLimit {
		return string(runes[:textFallbackLimit]) + "..."
	}
	return textContent
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
