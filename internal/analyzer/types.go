// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import "time"

// SPFRecordInfo classifies one candidate SPF record. Index is 1-based
// and matches the resolver answer order shown in reports.
type SPFRecordInfo struct {
	Record           string `json:"record"`
	Index            int    `json:"index"`
	HasTargetInclude bool   `json:"has_target_include"`
	IsTargetOnly     bool   `json:"is_target_only"`
}

type SPFAnalysis struct {
	Exists         bool            `json:"exists"`
	Records        []string        `json:"records"`
	PerRecord      []SPFRecordInfo `json:"per_record"`
	HasTarget      bool            `json:"has_target"`
	HasMultiple    bool            `json:"has_multiple"`
	LookupCount    int             `json:"lookup_count"`
	Errors         []string        `json:"errors"`
	Warnings       []string        `json:"warnings"`
	Recommendation string          `json:"recommendation,omitempty"`
}

type DKIMAnalysis struct {
	Exists             bool     `json:"exists"`
	Selector           string   `json:"selector"`
	Record             string   `json:"record,omitempty"`
	IsIndirection      bool     `json:"is_indirection"`
	IndirectionTarget  string   `json:"indirection_target,omitempty"`
	IsDuplicated       bool     `json:"is_duplicated"`
	DuplicatedLocation string   `json:"duplicated_location,omitempty"`
	Errors             []string `json:"errors"`
}

type DMARCAnalysis struct {
	Exists      bool     `json:"exists"`
	Record      string   `json:"record,omitempty"`
	Records     []string `json:"records"`
	HasMultiple bool     `json:"has_multiple"`
	Policy      string   `json:"policy,omitempty"`
	Errors      []string `json:"errors"`
	Notes       []string `json:"notes,omitempty"`
}

// AnalysisResult is assembled once per completed Analyze call and never
// mutated afterwards.
type AnalysisResult struct {
	Domain    string        `json:"domain"`
	SPF       SPFAnalysis   `json:"spf"`
	DKIM      DKIMAnalysis  `json:"dkim"`
	DMARC     DMARCAnalysis `json:"dmarc"`
	Timestamp time.Time     `json:"timestamp"`
}
