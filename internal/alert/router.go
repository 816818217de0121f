/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package alert

import (
	"strings"
	"unicode/utf8"
)

// Part is a single decoded MIME part of a fetched message: the declared
// content type (possibly with parameters) and the raw payload bytes.
type Part struct {
	ContentType string
	Body        []byte
}

// RawEmail is one message as handed over by the mail source. ID is opaque,
// unique per mailbox and stable across polls; the pipeline treats it purely
// as an idempotency key and never mutates the message.
type RawEmail struct {
	ID      string
	Subject string
	Sender  string
	Parts   []Part
}

// Route selects the HTML or plain-text body of a message and dispatches to
// the matching extractor. The last text/html part wins as the HTML
// candidate, the last text/plain part as the text candidate; HTML takes
// priority when present. Decoding never fails: invalid byte sequences are
// replaced, and a message with no text parts at all extracts to the generic
// fallback via the text path.
func Route(email RawEmail) string {
	var htmlBody, textBody string
	for _, part := range email.Parts {
		switch mediaType(part.ContentType) {
		case "text/html":
			htmlBody = decodePermissive(part.Body)
		case "text/plain":
			textBody = decodePermissive(part.Body)
		}
	}

	if htmlBody != "" {
		return ExtractHTML(htmlBody)
	}
	return ExtractText(textBody)
}

// mediaType returns the lower-cased media type without parameters.
func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// decodePermissive converts payload bytes to text, replacing invalid
// sequences rather than failing the pipeline.
func decodePermissive(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}
