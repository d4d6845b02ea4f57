// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer_test

import (
	"strings"
	"testing"

	"codeberg.org/miekg/dns"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/analyzer"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
)

func txt(name, data string) dnsclient.Answer {
	return dnsclient.Answer{Name: name, Type: dns.TypeTXT, TTL: 300, Data: data}
}

func cnameAns(name, target string) dnsclient.Answer {
	return dnsclient.Answer{Name: name, Type: dns.TypeCNAME, TTL: 300, Data: target}
}

const targetInclude = "include:_spf.professionalemailservices.com"

func TestAnalyzeSPFNoRecords(t *testing.T) {
	a := analyzer.New()

	tests := []struct {
		name    string
		answers []dnsclient.Answer
	}{
		{"empty answer set", nil},
		{"only non-SPF TXT", []dnsclient.Answer{
			txt("example.com", `"google-site-verification=abc123"`),
			txt("example.com", `"spf is configured elsewhere"`),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.AnalyzeSPF(tt.answers)
			if result.Exists {
				t.Error("Exists = true, want false")
			}
			if result.HasMultiple {
				t.Error("HasMultiple = true, want false")
			}
			if len(result.Errors) != 0 || len(result.Warnings) != 0 {
				t.Errorf("got %d errors, %d warnings, want none", len(result.Errors), len(result.Warnings))
			}
		})
	}
}

func TestAnalyzeSPFLookupCount(t *testing.T) {
	a := analyzer.New()

	tests := []struct {
		name         string
		record       string
		wantCount    int
		wantWarnings int
	}{
		{"four lookups no warning", `"v=spf1 include:a.com include:b.com a mx ~all"`, 4, 0},
		{"five lookups no warning", `"v=spf1 include:a.com include:b.com include:c.com a mx ~all"`, 5, 0},
		{"six lookups moderate", `"v=spf1 include:a.com include:b.com include:c.com include:d.com a mx ~all"`, 6, 1},
		{"nine lookups high", `"v=spf1 include:a.com include:b.com include:c.com include:d.com include:e.com include:f.com include:g.com a mx ~all"`, 9, 1},
		{"ip literals cost nothing", `"v=spf1 ip4:192.0.2.0/24 ip6:2001:db8::/32 ~all"`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.AnalyzeSPF([]dnsclient.Answer{txt("example.com", tt.record)})
			if result.LookupCount != tt.wantCount {
				t.Errorf("LookupCount = %d, want %d", result.LookupCount, tt.wantCount)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("got %d warnings %v, want %d", len(result.Warnings), result.Warnings, tt.wantWarnings)
			}
		})
	}
}

func TestAnalyzeSPFLookupWarningBreakdown(t *testing.T) {
	a := analyzer.New()
	record := `"v=spf1 include:a.com include:b.com include:c.com include:d.com a mx ~all"`
	result := a.AnalyzeSPF([]dnsclient.Answer{txt("example.com", record)})

	if len(result.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(result.Warnings))
	}
	for _, part := range []string{"include: 4", "a: 1", "mx: 1"} {
		if !strings.Contains(result.Warnings[0], part) {
			t.Errorf("warning %q missing breakdown part %q", result.Warnings[0], part)
		}
	}
}

func TestAnalyzeSPFTerminator(t *testing.T) {
	a := analyzer.New()

	tests := []struct {
		name         string
		record       string
		wantWarnings int
		wantMention  string
	}{
		{"softfail is clean", `"v=spf1 include:a.com ~all"`, 0, ""},
		{"hardfail suggests softfail", `"v=spf1 include:a.com -all"`, 1, "-all"},
		{"neutral suggests softfail", `"v=spf1 include:a.com ?all"`, 1, "?all"},
		{"pass-all suggests softfail", `"v=spf1 include:a.com +all"`, 1, "+all"},
		{"missing terminator", `"v=spf1 include:a.com"`, 1, "~all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.AnalyzeSPF([]dnsclient.Answer{txt("example.com", tt.record)})
			if len(result.Warnings) != tt.wantWarnings {
				t.Fatalf("got %d warnings %v, want %d", len(result.Warnings), result.Warnings, tt.wantWarnings)
			}
			if tt.wantMention != "" && !strings.Contains(result.Warnings[0], tt.wantMention) {
				t.Errorf("warning %q should mention %q", result.Warnings[0], tt.wantMention)
			}
		})
	}
}

func TestAnalyzeSPFTargetDetection(t *testing.T) {
	a := analyzer.New()

	t.Run("target-only record", func(t *testing.T) {
		result := a.AnalyzeSPF([]dnsclient.Answer{
			txt("example.com", `"v=spf1 `+targetInclude+` ~all"`),
		})
		if !result.HasTarget {
			t.Error("HasTarget = false, want true")
		}
		if len(result.PerRecord) != 1 || !result.PerRecord[0].IsTargetOnly {
			t.Errorf("PerRecord = %+v, want one target-only entry", result.PerRecord)
		}
	})

	t.Run("target plus legacy services", func(t *testing.T) {
		result := a.AnalyzeSPF([]dnsclient.Answer{
			txt("example.com", `"v=spf1 include:legacy.example `+targetInclude+` ~all"`),
		})
		if !result.HasTarget {
			t.Error("HasTarget = false, want true")
		}
		if result.PerRecord[0].IsTargetOnly {
			t.Error("IsTargetOnly = true, want false")
		}
	})

	t.Run("no target", func(t *testing.T) {
		result := a.AnalyzeSPF([]dnsclient.Answer{
			txt("example.com", `"v=spf1 include:legacy.example ~all"`),
		})
		if result.HasTarget {
			t.Error("HasTarget = true, want false")
		}
	})
}

func TestAnalyzeSPFMultipleRecords(t *testing.T) {
	a := analyzer.New()

	t.Run("keep the record with target and legacy services", func(t *testing.T) {
		result := a.AnalyzeSPF([]dnsclient.Answer{
			txt("example.com", `"v=spf1 `+targetInclude+` ~all"`),
			txt("example.com", `"v=spf1 include:legacy.example `+targetInclude+` ~all"`),
		})
		if !result.HasMultiple {
			t.Fatal("HasMultiple = false, want true")
		}
		if len(result.Errors) != 1 {
			t.Fatalf("got %d errors %v, want exactly 1", len(result.Errors), result.Errors)
		}
		if !strings.Contains(result.Errors[0], "Multiple SPF records detected (2)") {
			t.Errorf("error %q should report the record count", result.Errors[0])
		}
		// Budget and terminator checks are skipped for an already-invalid set.
		if len(result.Warnings) != 0 || result.LookupCount != 0 {
			t.Errorf("got warnings %v, lookup count %d; want none", result.Warnings, result.LookupCount)
		}
		if !strings.Contains(result.Recommendation, "record #2") {
			t.Errorf("recommendation %q should keep record #2", result.Recommendation)
		}
	})

	t.Run("manual merge when no record has target plus services", func(t *testing.T) {
		result := a.AnalyzeSPF([]dnsclient.Answer{
			txt("example.com", `"v=spf1 include:legacy.example mx ~all"`),
			txt("example.com", `"v=spf1 ip4:192.0.2.10 -all"`),
		})
		if len(result.Errors) != 1 {
			t.Fatalf("got %d errors, want 1", len(result.Errors))
		}
		for _, token := range []string{"include:legacy.example", "mx", "ip4:192.0.2.10", "~all"} {
			if !strings.Contains(result.Recommendation, token) {
				t.Errorf("merge recommendation %q missing token %q", result.Recommendation, token)
			}
		}
	})
}

func TestAnalyzeSPFRecordOrderPreserved(t *testing.T) {
	a := analyzer.New()
	result := a.AnalyzeSPF([]dnsclient.Answer{
		txt("example.com", `"v=spf1 include:first.example ~all"`),
		txt("example.com", `"v=spf1 include:second.example ~all"`),
	})

	if len(result.PerRecord) != 2 {
		t.Fatalf("got %d per-record entries, want 2", len(result.PerRecord))
	}
	if result.PerRecord[0].Index != 1 || !strings.Contains(result.PerRecord[0].Record, "first") {
		t.Errorf("record #1 = %+v, want the first answer", result.PerRecord[0])
	}
	if result.PerRecord[1].Index != 2 || !strings.Contains(result.PerRecord[1].Record, "second") {
		t.Errorf("record #2 = %+v, want the second answer", result.PerRecord[1])
	}
}
