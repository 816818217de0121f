/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package utils

import (
	"strings"
)

const Domain = "cryptocraft.com"

// IsCryptoCraft reports whether a From header belongs to the alert
// service, matching anywhere in the header so display names count too.
func IsCryptoCraft(sender string) bool {
	return strings.Contains(strings.ToLower(sender), "cryptocraft")
}

// ExtractAddress returns the bare address from a From header value such
// as "Name <user@host>". A header without angle brackets is returned
// trimmed as-is.
func ExtractAddress(header string) string {
	header = strings.TrimSpace(header)
	open := strings.LastIndex(header, "<")
	end := strings.LastIndex(header, ">")
	if open >= 0 && end > open {
		return strings.TrimSpace(header[open+1 : end])
	}
	return header
}

// ExtractDomain returns the part after the last @ of an address,
// lower-cased, or an empty string when there is none.
func ExtractDomain(address string) string {
	address = ExtractAddress(address)
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}
