/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package alert turns raw CryptoCraft alert emails into chat-ready text.
// Everything in this package is a pure function of its input: no I/O, no
// package-level mutable state, and no errors: malformed input degrades
// through fallbacks instead of failing.
package alert

import (
	"regexp"
	"strings"
)

// Impact is the severity carried by a CryptoCraft alert, derived from the
// marker image embedded in the HTML body. Plain-text bodies carry no marker,
// so the text path always reports ImpactUnknown.
type Impact int

const (
	ImpactUnknown Impact = iota
	ImpactLow
	ImpactMedium
	ImpactHigh
)

// impactMarkerRE matches the severity marker image filename. The colour code
// in the filename is the only severity signal the source emails carry.
var impactMarkerRE = regexp.MustCompile(`(?i)cc-impact-sm-(yel|red|ora)\.png`)

// Symbol returns the emoji used to annotate outgoing messages.
func (i Impact) Symbol() string {
	switch i {
	case ImpactHigh:
		return "🔴"
	case ImpactMedium:
		return "🟠"
	case ImpactLow:
		return "🟡"
	}
	return "🚨"
}

func (i Impact) String() string {
	switch i {
	case ImpactHigh:
		return "high"
	case ImpactMedium:
		return "medium"
	case ImpactLow:
		return "low"
	}
	return "unknown"
}

// Classify inspects raw HTML for the impact marker image and maps it to a
// severity. The first marker in document order wins. Absence of a marker is
// a normal outcome, not an error.
func Classify(htmlContent string) Impact {
	m := impactMarkerRE.FindStringSubmatch(htmlContent)
	if m == nil {
		return ImpactUnknown
	}
	switch strings.ToLower(m[1]) {
	case "red":
		return ImpactHigh
	case "ora":
		return ImpactMedium
	case "yel":
		return ImpactLow
	}
	return ImpactUnknown
}
