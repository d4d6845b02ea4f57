// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
)

var (
	// ErrInvalidDomain is returned before any network activity when the
	// domain does not survive normalization and validation.
	ErrInvalidDomain = errors.New("invalid domain")

	// ErrStale marks a result superseded by a later Analyze call from the
	// same caller session. The result is discarded, never partially
	// surfaced. Calls from other sessions never interfere.
	ErrStale = errors.New("analysis superseded by a newer request")

	// ErrAnalysisFailed covers sequencing failures not attributable to a
	// single lookup. Lookup failures themselves never surface here.
	ErrAnalysisFailed = errors.New("analysis failed")
)

// DNSLookuper is the one suspension point of an analysis: a single DNS
// query that never fails, only returns fewer answers.
type DNSLookuper interface {
	Lookup(ctx context.Context, recordType, name string) []dnsclient.Answer
}

// LookupFunc lets the DKIM analyzer issue its own follow-up probes
// (CNAME target resolution, duplicated-name probe).
type LookupFunc func(ctx context.Context, recordType, name string) []dnsclient.Answer

type Analyzer struct {
	DNS DNSLookuper

	targetInclude   string
	defaultSelector string
	providers       []Provider

	maxConcurrent int
	semaphore     chan struct{}

	// generations implements last-request-wins staleness per caller
	// session: a result commits only when no newer Analyze call for the
	// same session has started since. Keyed by the caller-supplied
	// session id (the HTTP layer uses the client IP, mirroring the rate
	// limiter).
	genMu       sync.Mutex
	generations map[string]uint64
}

// maxTrackedSessions bounds the generation map. Past the bound the map
// is reset; analyses in flight for evicted sessions come back stale,
// which errs on the side of discarding.
const maxTrackedSessions = 10000

func (a *Analyzer) nextGeneration(session string) uint64 {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	if len(a.generations) >= maxTrackedSessions {
		a.generations = make(map[string]uint64)
	}
	a.generations[session]++
	return a.generations[session]
}

func (a *Analyzer) currentGeneration(session string) uint64 {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	return a.generations[session]
}

type Option func(*Analyzer)

// WithTargetInclude sets the platform's SPF include token, e.g.
// "include:_spf.example.com".
func WithTargetInclude(token string) Option {
	return func(a *Analyzer) { a.targetInclude = strings.ToLower(token) }
}

func WithDefaultSelector(selector string) Option {
	return func(a *Analyzer) { a.defaultSelector = selector }
}

func WithProviders(providers []Provider) Option {
	return func(a *Analyzer) { a.providers = providers }
}

func WithMaxConcurrent(n int) Option {
	return func(a *Analyzer) {
		a.maxConcurrent = n
		a.semaphore = make(chan struct{}, n)
	}
}

func WithDNS(dns DNSLookuper) Option {
	return func(a *Analyzer) { a.DNS = dns }
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		DNS:             dnsclient.New(),
		targetInclude:   DefaultTargetInclude,
		defaultSelector: DefaultSelector,
		providers:       DefaultProviders,
		maxConcurrent:   6,
		semaphore:       make(chan struct{}, 6),
		generations:     make(map[string]uint64),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// unwrapTXT strips one surrounding quote pair, the form DoH resolvers
// hand back TXT data in.
func unwrapTXT(data string) string {
	s := strings.TrimSpace(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}
