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
	"html"
	"strings"

	"github.com/craftwatch/mailgram/internal/utils"
)

// MessageKind classifies how an extracted body should be presented.
type MessageKind int

const (
	// KindPreFormatted: the extractor already produced a complete alert
	// message; pass it through unchanged.
	KindPreFormatted MessageKind = iota
	// KindCryptoCraftFallback: a CryptoCraft email whose body parsing
	// failed; rebuild a minimal alert from the subject line.
	KindCryptoCraftFallback
	// KindGeneric: any other email; use the plain three-line template.
	KindGeneric
)

const (
	// The delivery channel rejects messages over 4096 characters; truncate
	// below that with margin for the suffix.
	maxMessageLen    = 4000
	truncationSuffix = "... (truncated)"

	genericBodyLimit    = 300
	defaultSubject      = "No Subject"
	defaultSender       = "Unknown Sender"
	cryptoCraftSiteLink = "https://cryptocraft.com"
)

var impactSymbols = []string{"🔴", "🟠", "🟡", "🚨"}

// ClassifyMessage sniffs the extracted body together with the subject and
// sender to decide which presentation template applies. Pure classification,
// no formatting.
func ClassifyMessage(subject, sender, body string) MessageKind {
	if strings.Contains(body, "Breaking:") && containsAny(body, impactSymbols) {
		return KindPreFormatted
	}
	if utils.IsCryptoCraft(sender) || strings.Contains(subject, "Breaking:") {
		return KindCryptoCraftFallback
	}
	return KindGeneric
}

// Format combines an extracted body with the original subject and sender
// into the final chat message, truncated to the channel limit.
func Format(subject, sender, body string) string {
	if subject == "" {
		subject = defaultSubject
	}
	if sender == "" {
		sender = defaultSender
	}

	var message string
	switch ClassifyMessage(subject, sender, body) {
	case KindPreFormatted:
		message = body
	case KindCryptoCraftFallback:
		title := strings.TrimSpace(strings.ReplaceAll(subject, "Breaking:", ""))
		message = fmt.Sprintf("🚨 Breaking: %s\n\n📖 [Read more](%s)", title, cryptoCraftSiteLink)
	default:
		message = fmt.Sprintf(
			"📧 **New Email**\n\n**From:** %s\n**Subject:** %s\n\n%s...",
			sanitizeSender(sender), subject, truncateRunes(body, genericBodyLimit),
		)
	}

	return Truncate(message)
}

// Truncate enforces the channel length limit, marking cut-off messages with
// a suffix.
func Truncate(message string) string {
	runes := []rune(message)
	if len(runes) <= maxMessageLen {
		return message
	}
	return string(runes[:maxMessageLen]) + truncationSuffix
}

// sanitizeSender strips angle brackets and escapes HTML entities so address
// formatting can't break the delivery channel's markup parsing.
func sanitizeSender(sender string) string {
	if sender == "" {
		return "Unknown"
	}
	cleaned := strings.NewReplacer("<", "", ">", "").Replace(sender)
	return html.EscapeString(cleaned)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
