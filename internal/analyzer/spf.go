// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
)

// mechanism is one whitespace-separated SPF term. Grammar handled here:
//
//	term      = [qualifier] name [ ":" value | "/" prefix | "=" value ]
//	qualifier = "+" | "-" | "~" | "?"
//
// Modifiers (redirect=, exp=) parse into the same shape with "=" as the
// separator. Anything else (including the v=spf1 version tag) keeps its
// raw text with an empty value.
type mechanism struct {
	qualifier byte
	name      string
	value     string
	raw       string
}

func parseMechanisms(record string) []mechanism {
	fields := strings.Fields(record)
	mechs := make([]mechanism, 0, len(fields))

	for _, f := range fields {
		if strings.EqualFold(f, "v=spf1") {
			continue
		}

		m := mechanism{qualifier: '+', raw: f}
		rest := f
		switch f[0] {
		case '+', '-', '~', '?':
			m.qualifier = f[0]
			rest = f[1:]
		}

		if idx := strings.IndexAny(rest, ":/="); idx >= 0 {
			m.name = strings.ToLower(rest[:idx])
			m.value = rest[idx+1:]
		} else {
			m.name = strings.ToLower(rest)
		}
		mechs = append(mechs, m)
	}
	return mechs
}

// lookupCosting lists the mechanisms that each cost one DNS lookup
// during SPF evaluation (RFC 7208 §4.6.4 budget of 10).
var lookupCosting = map[string]bool{
	"include": true,
	"a":       true,
	"mx":      true,
	"ptr":     true,
	"exists":  true,
}

func countLookups(record string) (total int, breakdown []string) {
	counts := make(map[string]int)
	var order []string
	for _, m := range parseMechanisms(record) {
		if !lookupCosting[m.name] {
			continue
		}
		if counts[m.name] == 0 {
			order = append(order, m.name)
		}
		counts[m.name]++
		total++
	}
	for _, name := range order {
		breakdown = append(breakdown, fmt.Sprintf("%s: %d", name, counts[name]))
	}
	return total, breakdown
}

// extractSPFRecords unwraps TXT answers and keeps v=spf1 records in
// resolver order.
func extractSPFRecords(answers []dnsclient.Answer) []string {
	var records []string
	for _, a := range answers {
		if !a.IsTXT() {
			continue
		}
		record := unwrapTXT(a.Data)
		lower := strings.ToLower(strings.TrimSpace(record))
		if lower == "v=spf1" || strings.HasPrefix(lower, "v=spf1 ") {
			records = append(records, record)
		}
	}
	return records
}

func (a *Analyzer) hasTargetInclude(record string) bool {
	for _, m := range parseMechanisms(record) {
		if m.name == "include" && strings.EqualFold("include:"+m.value, a.targetInclude) {
			return true
		}
	}
	return false
}

// isTargetOnly reports whether the record is exactly the platform
// include plus a terminator and nothing else: the shape the dashboard
// tells customers to add, redundant next to a fuller record.
func (a *Analyzer) isTargetOnly(record string) bool {
	mechs := parseMechanisms(record)
	if len(mechs) != 2 {
		return false
	}
	hasTarget := false
	hasAll := false
	for _, m := range mechs {
		switch {
		case m.name == "include" && strings.EqualFold("include:"+m.value, a.targetInclude):
			hasTarget = true
		case m.name == "all":
			hasAll = true
		}
	}
	return hasTarget && hasAll
}

func findTerminator(record string) (found bool, qualifier byte) {
	for _, m := range parseMechanisms(record) {
		if m.name == "all" {
			return true, m.qualifier
		}
	}
	return false, 0
}

// AnalyzeSPF classifies the apex TXT answer set. It never fails; empty
// input yields Exists=false and nothing else.
func (a *Analyzer) AnalyzeSPF(answers []dnsclient.Answer) SPFAnalysis {
	result := SPFAnalysis{
		Errors:   []string{},
		Warnings: []string{},
	}

	records := extractSPFRecords(answers)
	if len(records) == 0 {
		return result
	}

	result.Exists = true
	result.Records = records
	result.HasMultiple = len(records) > 1

	for i, record := range records {
		info := SPFRecordInfo{
			Record:           record,
			Index:            i + 1,
			HasTargetInclude: a.hasTargetInclude(record),
			IsTargetOnly:     a.isTargetOnly(record),
		}
		result.PerRecord = append(result.PerRecord, info)
		if info.HasTargetInclude {
			result.HasTarget = true
		}
	}

	if result.HasMultiple {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Multiple SPF records detected (%d). Only one is allowed; this invalidates all of them.",
			len(records)))
		result.Recommendation = a.consolidationAdvice(result.PerRecord)
		return result
	}

	// Terminator and lookup-budget checks only make sense for a single,
	// potentially valid record.
	record := records[0]

	if found, qual := findTerminator(record); !found {
		result.Warnings = append(result.Warnings,
			"No 'all' terminator found. Add '~all' at the end so receivers soft-fail mail from unlisted servers.")
	} else if qual != '~' {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Record ends with '%call' — '~all' (softfail) is the safer choice while your sending sources may still change.",
			qual))
	}

	total, breakdown := countLookups(record)
	result.LookupCount = total
	switch {
	case total > 8:
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"SPF triggers %d DNS lookups (%s) — dangerously close to or over the 10-lookup ceiling of RFC 7208. Includes may hide further nested lookups not visible here.",
			total, strings.Join(breakdown, ", ")))
	case total >= 6:
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"SPF triggers %d DNS lookups (%s). The protocol ceiling is 10; leave headroom before adding more services.",
			total, strings.Join(breakdown, ", ")))
	}

	return result
}

// consolidationAdvice picks the multiple-record remediation: keep the
// first record that carries the platform include alongside other
// mechanisms, otherwise propose a manual merge.
func (a *Analyzer) consolidationAdvice(perRecord []SPFRecordInfo) string {
	for _, info := range perRecord {
		if info.HasTargetInclude && !info.IsTargetOnly {
			return fmt.Sprintf(
				"Keep record #%d and delete the others. It already contains %s next to your existing mechanisms, so this preserves existing services while adding target authorization.",
				info.Index, a.targetInclude)
		}
	}

	var tokens []string
	for _, info := range perRecord {
		for _, m := range parseMechanisms(info.Record) {
			switch m.name {
			case "include", "a", "mx", "ip4", "ip6":
				tokens = append(tokens, m.raw)
			}
		}
	}
	return fmt.Sprintf(
		"Merge all mechanisms into a single record and delete the rest, e.g.: v=spf1 %s ~all",
		strings.Join(tokens, " "))
}
