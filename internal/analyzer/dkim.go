// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
)

const domainkeyLabel = "._domainkey."

// DKIMName builds the selector-qualified query name.
func DKIMName(selector, domain string) string {
	return selector + domainkeyLabel + domain
}

// looksLikeDKIM reports whether unwrapped TXT data is a DKIM key
// record: a v=DKIM1 version tag or at least a p= public-key tag.
func looksLikeDKIM(record string) bool {
	lower := strings.ToLower(record)
	if strings.Contains(lower, "v=dkim1") {
		return true
	}
	for _, tag := range parseTags(record) {
		if tag.key == "p" {
			return true
		}
	}
	return false
}

// AnalyzeDKIM resolves the DKIM state for one selector. The initial
// answer set comes from a TXT query at <selector>._domainkey.<domain>;
// probe issues the follow-up lookups (indirection target, duplicated
// name). Sub-lookup failures degrade to "not found" and the next
// candidate path is tried; the function itself never fails.
func (a *Analyzer) AnalyzeDKIM(ctx context.Context, selector, domain string, answers []dnsclient.Answer, probe LookupFunc) DKIMAnalysis {
	result := DKIMAnalysis{
		Selector: selector,
		Errors:   []string{},
	}

	// Path 1: a direct TXT key record at the queried name.
	for _, ans := range answers {
		if !ans.IsTXT() {
			continue
		}
		record := unwrapTXT(ans.Data)
		if looksLikeDKIM(record) {
			result.Exists = true
			result.Record = record
			return result
		}
	}

	// Path 2: CNAME indirection. Resolvers usually return the CNAME in
	// the TXT answer chain, so no separate CNAME query is needed here.
	for _, ans := range answers {
		if !ans.IsCNAME() {
			continue
		}
		target := strings.TrimSuffix(strings.TrimSpace(ans.Data), ".")
		result.IsIndirection = true
		result.IndirectionTarget = target

		if provider := matchProvider(a.providers, target); provider != "" {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"The DKIM host %s points at %s (%s). To send through Professional Email Services, replace this CNAME with the values shown in your dashboard under Domains → DNS records.",
				DKIMName(selector, domain), target, provider))
			return result
		}

		if probe != nil {
			for _, t := range probe(ctx, "TXT", target) {
				if !t.IsTXT() {
					continue
				}
				record := unwrapTXT(t.Data)
				if looksLikeDKIM(record) {
					result.Exists = true
					result.Record = record
					return result
				}
			}
		}

		result.Errors = append(result.Errors, fmt.Sprintf(
			"The DKIM host is a CNAME to %s, but no key record was found there. Check the target name for typos or wait for propagation.",
			target))
		return result
	}

	// Path 3: the DNS manager may have auto-appended the zone to a host
	// value the customer already fully qualified, publishing the record
	// at <selector>._domainkey.<domain>.<domain> instead.
	if probe != nil {
		duplicated := DKIMName(selector, domain) + "." + domain
		for _, t := range probe(ctx, "TXT", duplicated) {
			if !t.IsTXT() {
				continue
			}
			result.IsDuplicated = true
			result.DuplicatedLocation = duplicated
			result.Errors = append(result.Errors, fmt.Sprintf(
				"Found the DKIM record at %s — your DNS manager appended the domain to an already-qualified host value. Re-enter the host as just '%s._domainkey' (or '%s' if your DNS manager appends '._domainkey.%s' itself).",
				duplicated, selector, selector, domain))
			return result
		}
	}

	result.Errors = append(result.Errors, fmt.Sprintf(
		"No DKIM record found at %s. If you added it recently it may still be propagating; DNS changes can take up to 48 hours.",
		DKIMName(selector, domain)))
	return result
}
