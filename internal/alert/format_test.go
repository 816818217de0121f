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
	"unicode/utf8"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		sender  string
		body    string
		want    MessageKind
	}{
		{
			"preformatted alert passes through",
			"Breaking News", "alerts@cryptocraft.com",
			"🔴 Breaking: Fed cuts rates",
			KindPreFormatted,
		},
		{
			"default symbol also counts as preformatted",
			"anything", "anyone@example.com",
			"🚨 Breaking: generic alert body",
			KindPreFormatted,
		},
		{
			"cryptocraft sender without parsed body",
			"Market update", "no-reply@CryptoCraft.com",
			"some unparsed remains",
			KindCryptoCraftFallback,
		},
		{
			"breaking subject without parsed body",
			"Breaking: BTC ETF approved", "news@example.com",
			"",
			KindCryptoCraftFallback,
		},
		{
			"plain email is generic",
			"Your invoice", "billing@example.com",
			"Please find attached.",
			KindGeneric,
		},
		{
			"breaking body without symbol is not preformatted",
			"hi", "a@example.com",
			"Breaking: something without any symbol",
			KindGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyMessage(tt.subject, tt.sender, tt.body); got != tt.want {
				t.Fatalf("ClassifyMessage: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		sender  string
		body    string
		want    string
	}{
		{
			"preformatted body is untouched",
			"subject", "alerts@cryptocraft.com",
			"🟡 Breaking: Minor update\n\n📖 [Read more](https://cryptocraft.com/n/1)",
			"🟡 Breaking: Minor update\n\n📖 [Read more](https://cryptocraft.com/n/1)",
		},
		{
			"cryptocraft fallback rebuilds from subject",
			"Breaking: ETF decision due today", "alerts@cryptocraft.com",
			"",
			"🚨 Breaking: ETF decision due today\n\n📖 [Read more](https://cryptocraft.com)",
		},
		{
			"generic template with sanitized sender",
			"Weekly report", "Alice <alice@example.com>",
			"All systems nominal.",
			"📧 **New Email**\n\n**From:** Alice alice@example.com\n**Subject:** Weekly report\n\nAll systems nominal....",
		},
		{
			"empty subject and sender get defaults",
			"", "",
			"hello there",
			"📧 **New Email**\n\n**From:** Unknown Sender\n**Subject:** No Subject\n\nhello there...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.subject, tt.sender, tt.body); got != tt.want {
				t.Fatalf("Format:\n got: %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestFormatGenericBodyLimit(t *testing.T) {
	body := strings.Repeat("x", genericBodyLimit+50)

	got := Format("s", "a@mail.test", body)
	if strings.Count(got, "x") != genericBodyLimit {
		t.Fatalf("generic body not cut at %d runes", genericBodyLimit)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("generic template missing ellipsis: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("a", maxMessageLen)
	if got := Truncate(short); got != short {
		t.Fatalf("message at the limit was modified")
	}

	long := strings.Repeat("б", maxMessageLen+1)
	got := Truncate(long)
	if !strings.HasSuffix(got, truncationSuffix) {
		t.Fatalf("oversize message not marked: %q", got[len(got)-20:])
	}
	if n := utf8.RuneCountInString(got); n != maxMessageLen+utf8.RuneCountInString(truncationSuffix) {
		t.Fatalf("truncated length %d runes", n)
	}
}
