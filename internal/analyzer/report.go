// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import (
	"fmt"
	"strings"
	"time"
)

const (
	reportHeader = "=== EMAIL AUTHENTICATION ANALYSIS ==="
	reportFooter = "=== END OF REPORT ==="
)

// RenderReport formats an AnalysisResult as a plain-text block suitable
// for pasting into a support ticket. It only formats fields the
// analyzers already computed; nothing is re-derived, so two calls on
// the same result are byte-identical.
func RenderReport(result *AnalysisResult) string {
	var b strings.Builder

	b.WriteString(reportHeader + "\n")
	fmt.Fprintf(&b, "Domain: %s\n", result.Domain)
	fmt.Fprintf(&b, "Analyzed: %s\n", result.Timestamp.UTC().Format(time.RFC3339))

	renderSPF(&b, result.SPF)
	renderDKIM(&b, result.DKIM)
	renderDMARC(&b, result.DMARC)

	b.WriteString("\n" + reportFooter + "\n")
	return b.String()
}

func renderSPF(b *strings.Builder, spf SPFAnalysis) {
	b.WriteString("\n--- SPF ---\n")

	switch {
	case !spf.Exists:
		b.WriteString("Status: no SPF record found\n")
	case spf.HasMultiple:
		fmt.Fprintf(b, "Status: INVALID — %d SPF records published\n", len(spf.Records))
	default:
		b.WriteString("Status: SPF record found\n")
	}

	for _, info := range spf.PerRecord {
		fmt.Fprintf(b, "Record #%d: %s\n", info.Index, info.Record)
		if info.IsTargetOnly {
			fmt.Fprintf(b, "  (record #%d contains only the platform include and a terminator)\n", info.Index)
		}
	}

	if spf.Exists && !spf.HasMultiple {
		fmt.Fprintf(b, "Platform authorized: %s\n", yesNo(spf.HasTarget))
		fmt.Fprintf(b, "DNS lookups used: %d/10\n", spf.LookupCount)
	}

	writeList(b, "Error", spf.Errors)
	writeList(b, "Warning", spf.Warnings)
	if spf.Recommendation != "" {
		fmt.Fprintf(b, "Recommendation: %s\n", spf.Recommendation)
	}
}

func renderDKIM(b *strings.Builder, dkim DKIMAnalysis) {
	b.WriteString("\n--- DKIM ---\n")
	fmt.Fprintf(b, "Selector: %s\n", dkim.Selector)

	switch {
	case dkim.Exists:
		b.WriteString("Status: DKIM key record found\n")
	case dkim.IsDuplicated:
		b.WriteString("Status: record published at a duplicated name\n")
	default:
		b.WriteString("Status: no DKIM key record found\n")
	}

	if dkim.Record != "" {
		fmt.Fprintf(b, "Record: %s\n", dkim.Record)
	}
	if dkim.IsIndirection {
		fmt.Fprintf(b, "CNAME target: %s\n", dkim.IndirectionTarget)
	}
	if dkim.IsDuplicated {
		fmt.Fprintf(b, "Found at: %s\n", dkim.DuplicatedLocation)
	}

	writeList(b, "Error", dkim.Errors)
}

func renderDMARC(b *strings.Builder, dmarc DMARCAnalysis) {
	b.WriteString("\n--- DMARC ---\n")

	switch {
	case dmarc.HasMultiple:
		fmt.Fprintf(b, "Status: INVALID — %d DMARC records published\n", len(dmarc.Records))
	case dmarc.Exists:
		b.WriteString("Status: DMARC record found\n")
	default:
		b.WriteString("Status: no DMARC record found\n")
	}

	for i, record := range dmarc.Records {
		if dmarc.HasMultiple {
			fmt.Fprintf(b, "Record #%d: %s\n", i+1, record)
		} else {
			fmt.Fprintf(b, "Record: %s\n", record)
		}
	}
	if dmarc.Policy != "" {
		fmt.Fprintf(b, "Policy: %s\n", dmarc.Policy)
	}

	writeList(b, "Error", dmarc.Errors)
	writeList(b, "Note", dmarc.Notes)
}

func writeList(b *strings.Builder, label string, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "%s: %s\n", label, item)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
