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
	"testing"
)

const htmlTypical = `
	<html>
		<img src='cc-impact-sm-red.png'>
		<div>Breaking: Major Update</div>
		<a href='http://example.com'>View Story</a>
	</html>
`

const htmlEdge = `
	<html>
		<img src='cc-impact-sm-yel.png'>
		<style>body {font-family: 'Arial';}</style>
		<script>alert('Hello');</script>
		<div>Breaking: Edge Case Scenario</div>
		<span>View Story</span>
	</html>
`

const htmlMalformed = `
	<html>
		<img src='cc-impact-sm-ora.png'>
		<div>Breaking</div>
	</malformed>
`

func TestExtractHTMLTypical(t *testing.T) {
	result := ExtractHTML(htmlTypical)
	if !strings.Contains(result, "🔴 Breaking: Major Update") {
		t.Errorf("missing high-impact title, got %q", result)
	}
	if !strings.Contains(result, "[Read more](http://example.com)") {
		t.Errorf("missing read-more link, got %q", result)
	}
}

func TestExtractHTMLEdge(t *testing.T) {
	// The style block contains "font-family" and the only "View Story" is
	// in a span with no href: the title must still come through, the link
	// must not.
	result := ExtractHTML(htmlEdge)
	if !strings.Contains(result, "🟡 Breaking: Edge Case Scenario") {
		t.Errorf("missing low-impact title, got %q", result)
	}
	if strings.Contains(result, "Read more") {
		t.Errorf("unexpected read-more link, got %q", result)
	}
}

func TestExtractHTMLMalformed(t *testing.T) {
	// "Breaking" without a colon-delimited title degrades to the generic
	// notice, keeping the classified symbol.
	result := ExtractHTML(htmlMalformed)
	want := "🟠 " + genericAlertNotice
	if result != want {
		t.Errorf("ExtractHTML() = %q, want %q", result, want)
	}
}

func TestExtractHTML(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		contains    []string
		notContains []string
	}{
		{
			"no marker uses default symbol",
			"<div>Breaking: Plain Event</div>",
			[]string{"🚨 Breaking: Plain Event"},
			nil,
		},
		{
			"title followed by tag is cut at tag",
			"<td>Breaking: Rate Decision<br>More text</td>",
			[]string{"🚨 Breaking: Rate Decision"},
			[]string{"More text"},
		},
		{
			"style block does not shadow title",
			"<style>.breaking { margin: 0 }</style><p>Breaking: CPI Release</p>",
			[]string{"Breaking: CPI Release"},
			nil,
		},
		{
			"script block stripped before matching",
			"<script>var x = 'Breaking: fake';</script><p>Breaking: Real News</p>",
			[]string{"Breaking: Real News"},
			[]string{"fake"},
		},
		{
			"bare href before view story",
			"<img src='cc-impact-sm-red.png'>Breaking: ETF Approved <table href='https://news.example.com/story'>View Story</table>",
			[]string{"🔴 Breaking: ETF Approved", "[Read more](https://news.example.com/story)"},
			nil,
		},
		{
			"view story then href",
			"Breaking: Halving Complete View Story <a href='https://example.com/h'>",
			[]string{"[Read more](https://example.com/h)"},
			nil,
		},
		{
			"non-http link rejected",
			"Breaking: Phishing Test <a href='javascript:alert(1)'>View Story</a>",
			[]string{"🚨 Breaking: Phishing Test"},
			[]string{"Read more", "javascript"},
		},
		{
			"alert pattern as last resort",
			"<div>Market Alert: Volatility spike expected</div>",
			[]string{"🚨 Breaking: Volatility spike expected"},
			nil,
		},
		{
			"flattened fallback finds fragment split by tags",
			"<td>Breaking:</td><td>Dollar index drops sharply after announcement</td>",
			[]string{"🚨 Breaking: Dollar index drops sharply"},
			nil,
		},
		{
			"empty input degrades to generic notice",
			"",
			[]string{"🚨 " + genericAlertNotice},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractHTML(tt.html)
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("ExtractHTML() = %q, want it to contain %q", result, want)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(result, unwanted) {
					t.Errorf("ExtractHTML() = %q, must not contain %q", result, unwanted)
				}
			}
		})
	}
}

func TestExtractHTMLIdempotent(t *testing.T) {
	for _, html := range []string{htmlTypical, htmlEdge, htmlMalformed} {
		if first, second := ExtractHTML(html), ExtractHTML(html); first != second {
			t.Errorf("ExtractHTML not idempotent: %q != %q", first, second)
		}
	}
}
