// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
)

const (
	dmarcPrefix    = "_dmarc."
	analyzeTimeout = 30 * time.Second
	capacityWait   = 10 * time.Second
)

type namedResult struct {
	key    string
	result any
	panic  any
}

// Analyze runs the three protocol analyzers for one domain and
// assembles a complete AnalysisResult, or fails with no partial state.
//
// session identifies the caller; each call is tagged with that
// session's next generation and the result commits only if no newer
// call from the same session started meanwhile (last-request-wins).
// Concurrent calls from different sessions never supersede each other.
// In-flight lookups are not cancelled; staleness is purely a
// commit-time check, so a superseded call returns ErrStale.
func (a *Analyzer) Analyze(ctx context.Context, session, domain, selector string) (*AnalysisResult, error) {
	ascii, err := normalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	if selector == "" {
		selector = a.defaultSelector
	}

	gen := a.nextGeneration(session)

	select {
	case a.semaphore <- struct{}{}:
		defer func() { <-a.semaphore }()
	case <-time.After(capacityWait):
		slog.Warn("Backpressure: rejected analysis", "domain", ascii)
		return nil, fmt.Errorf("%w: system at capacity, try again shortly", ErrAnalysisFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	start := time.Now()
	resultsCh := make(chan namedResult, 3)
	var wg sync.WaitGroup

	// The three analyzers have no data dependency on each other; only
	// DKIM's internal probes are sequential, inside AnalyzeDKIM itself.
	tasks := map[string]func() any{
		"spf": func() any {
			return a.AnalyzeSPF(a.DNS.Lookup(ctx, "TXT", ascii))
		},
		"dkim": func() any {
			answers := a.DNS.Lookup(ctx, "TXT", DKIMName(selector, ascii))
			return a.AnalyzeDKIM(ctx, selector, ascii, answers, a.DNS.Lookup)
		},
		"dmarc": func() any {
			return a.AnalyzeDMARC(a.DNS.Lookup(ctx, "TXT", dmarcPrefix+ascii))
		},
	}

	for key, fn := range tasks {
		wg.Add(1)
		go func(key string, fn func() any) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					resultsCh <- namedResult{key: key, panic: r}
				}
			}()
			resultsCh <- namedResult{key: key, result: fn()}
		}(key, fn)
	}

	wg.Wait()
	close(resultsCh)

	result := &AnalysisResult{
		Domain:    ascii,
		Timestamp: time.Now().UTC(),
	}
	for nr := range resultsCh {
		if nr.panic != nil {
			slog.Error("Analyzer task panicked", "task", nr.key, "domain", ascii, "panic", fmt.Sprintf("%v", nr.panic))
			return nil, fmt.Errorf("%w: %s analyzer: %v", ErrAnalysisFailed, nr.key, nr.panic)
		}
		switch v := nr.result.(type) {
		case SPFAnalysis:
			result.SPF = v
		case DKIMAnalysis:
			result.DKIM = v
		case DMARCAnalysis:
			result.DMARC = v
		}
	}

	slog.Info("Analysis completed",
		"domain", ascii,
		"selector", selector,
		"elapsed_s", fmt.Sprintf("%.2f", time.Since(start).Seconds()),
	)

	if a.currentGeneration(session) != gen {
		slog.Debug("Discarding stale analysis", "session", session, "domain", ascii, "generation", gen)
		return nil, ErrStale
	}
	return result, nil
}

func normalizeDomain(domain string) (string, error) {
	d := dnsclient.Normalize(domain)
	if d == "" {
		return "", ErrInvalidDomain
	}
	ascii, err := dnsclient.ToASCII(d)
	if err != nil || !dnsclient.ValidateDomain(ascii) {
		return "", ErrInvalidDomain
	}
	return ascii, nil
}
