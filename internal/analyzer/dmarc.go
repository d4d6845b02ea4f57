// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
)

// tag is one element of the semicolon-separated key=value list shared
// by DMARC and DKIM records:
//
//	tag-list = tag *( ";" tag ) [ ";" ]
//	tag      = key "=" value
//
// Keys are lowercased; values keep their original case with surrounding
// whitespace trimmed. Malformed segments are dropped.
type tag struct {
	key   string
	value string
}

func parseTags(record string) []tag {
	var tags []tag
	for _, segment := range strings.Split(record, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		parts := strings.SplitN(segment, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		if key == "" {
			continue
		}
		tags = append(tags, tag{key: key, value: strings.TrimSpace(parts[1])})
	}
	return tags
}

func tagValue(tags []tag, key string) (string, bool) {
	for _, t := range tags {
		if t.key == key {
			return t.value, true
		}
	}
	return "", false
}

// AnalyzeDMARC classifies the _dmarc TXT answer set. Policy is
// extracted only when exactly one valid record exists.
func (a *Analyzer) AnalyzeDMARC(answers []dnsclient.Answer) DMARCAnalysis {
	result := DMARCAnalysis{
		Errors: []string{},
	}

	var records []string
	for _, ans := range answers {
		if !ans.IsTXT() {
			continue
		}
		record := unwrapTXT(ans.Data)
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(record)), "v=dmarc1") {
			records = append(records, record)
		}
	}

	result.Records = records
	result.HasMultiple = len(records) > 1

	if len(records) == 0 {
		result.Errors = append(result.Errors,
			"No DMARC record found. Major receivers now require one for bulk senders; publish a TXT record at host _dmarc with the starter value \"v=DMARC1; p=none;\" and tighten the policy once reports look clean.")
		return result
	}

	if result.HasMultiple {
		// Deliberately no keep/delete pick here: which policy survives a
		// merge is a human decision.
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Multiple DMARC records detected (%d). Receivers treat this as no policy at all; consolidate them into a single record manually.",
			len(records)))
		return result
	}

	result.Exists = true
	result.Record = records[0]

	tags := parseTags(records[0])
	if policy, ok := tagValue(tags, "p"); ok {
		result.Policy = strings.ToLower(policy)
	}

	if result.Policy == "none" {
		result.Notes = append(result.Notes,
			"Policy is p=none (monitoring only). Spoofed mail is still delivered; move to p=quarantine once your legitimate sources pass.")
	}
	if _, ok := tagValue(tags, "rua"); !ok {
		result.Notes = append(result.Notes,
			"No rua= reporting address configured — you will not receive aggregate reports showing who sends as your domain.")
	}

	return result
}
