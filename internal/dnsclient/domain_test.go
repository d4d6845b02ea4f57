// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package dnsclient_test

import (
	"testing"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"example.com", "example.com"},
		{"Example.COM", "example.com"},
		{"  example.com  ", "example.com"},
		{"https://example.com", "example.com"},
		{"http://example.com/login?next=/inbox", "example.com"},
		{"HTTPS://Example.COM/Path/", "example.com"},
		{"example.com.", "example.com"},
		{"example.com#fragment", "example.com"},
		{"", ""},
		{"   ", ""},
		{"https://", ""},
	}

	for _, tt := range tests {
		if got := dnsclient.Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToASCII(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"example.com", "example.com", false},
		{"bücher.de", "xn--bcher-kva.de", false},
		{"日本.jp", "xn--wgv71a.jp", false},
	}

	for _, tt := range tests {
		got, err := dnsclient.ToASCII(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ToASCII(%q) err = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToASCII(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   bool
	}{
		{"example.com", true},
		{"sub.example.com", true},
		{"a-b.example.co.uk", true},
		{"xn--bcher-kva.de", true},
		{"", false},
		{"no-tld", false},
		{"example..com", false},
		{".example.com", false},
		{"-leading.example.com", false},
		{"trailing-.example.com", false},
		{"exam_ple.com", false},
		{"example.c0m", false},
		{"a.b.c.d.e.f.g.h.i.j.k.example.com", false},
	}

	for _, tt := range tests {
		if got := dnsclient.ValidateDomain(tt.domain); got != tt.want {
			t.Errorf("ValidateDomain(%q) = %v, want %v", tt.domain, got, tt.want)
		}
	}
}
