/*
 *  Copyright (c) 2021 Neil Alexander
 *
 *  This Source Code Form is subject to the terms of the Mozilla Public
 *  License, v. 2.0. If a copy of the MPL was not distributed with this
 *  file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package utils

import (
	"testing"
)

func TestIsCryptoCraft(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   bool
	}{
		{"bare address", "alerts@cryptocraft.com", true},
		{"uppercase", "ALERTS@CRYPTOCRAFT.COM", true},
		{"with display name", "CryptoCraft Alerts <no-reply@cryptocraft.com>", true},
		{"name only match", "CryptoCraft <news@mailer.example.com>", true},
		{"other sender", "billing@example.com", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCryptoCraft(tt.sender); got != tt.want {
				t.Errorf("IsCryptoCraft(%q) = %v, want %v", tt.sender, got, tt.want)
			}
		})
	}
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"display name form", "CryptoCraft Alerts <alerts@cryptocraft.com>", "alerts@cryptocraft.com"},
		{"bare address", "alerts@cryptocraft.com", "alerts@cryptocraft.com"},
		{"padded", "  alerts@cryptocraft.com  ", "alerts@cryptocraft.com"},
		{"space inside brackets", "Name < user@host >", "user@host"},
		{"unclosed bracket", "Name <user@host", "Name <user@host"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAddress(tt.header); got != tt.want {
				t.Errorf("ExtractAddress(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bare address", "alerts@cryptocraft.com", "cryptocraft.com"},
		{"display name form", "Alerts <alerts@CryptoCraft.com>", "cryptocraft.com"},
		{"no at sign", "not-an-address", ""},
		{"trailing at sign", "user@", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDomain(tt.header); got != tt.want {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
