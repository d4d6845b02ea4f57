// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package db

import (
	"context"
	"time"
)

type AnalysisRecord struct {
	ID          int64     `json:"id"`
	Domain      string    `json:"domain"`
	ASCIIDomain string    `json:"ascii_domain"`
	Selector    string    `json:"selector"`
	Result      []byte    `json:"result"`
	Report      string    `json:"report"`
	DurationS   float64   `json:"duration_s"`
	Success     bool      `json:"success"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d *Database) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) (int64, error) {
	var id int64
	err := d.Pool.QueryRow(ctx,
		`INSERT INTO domain_analyses (domain, ascii_domain, selector, result, report, duration_s, success)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		rec.Domain, rec.ASCIIDomain, rec.Selector, rec.Result, rec.Report, rec.DurationS, rec.Success,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (d *Database) GetAnalysis(ctx context.Context, id int64) (*AnalysisRecord, error) {
	rec := &AnalysisRecord{}
	err := d.Pool.QueryRow(ctx,
		`SELECT id, domain, ascii_domain, selector, result, report, duration_s, success, created_at
		 FROM domain_analyses WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Domain, &rec.ASCIIDomain, &rec.Selector, &rec.Result,
		&rec.Report, &rec.DurationS, &rec.Success, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecent returns the newest analyses for a domain, report text
// omitted (fetch one by id for the full report).
func (d *Database) ListRecent(ctx context.Context, asciiDomain string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rows, err := d.Pool.Query(ctx,
		`SELECT id, domain, ascii_domain, selector, result, duration_s, success, created_at
		 FROM domain_analyses
		 WHERE ascii_domain = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, asciiDomain, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		if err := rows.Scan(&rec.ID, &rec.Domain, &rec.ASCIIDomain, &rec.Selector,
			&rec.Result, &rec.DurationS, &rec.Success, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
