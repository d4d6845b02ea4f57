// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/analyzer"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
)

// fakeDNS serves lookups from a fixed table keyed by query name and
// records which names were asked for.
type fakeDNS struct {
	mu      sync.Mutex
	records map[string][]dnsclient.Answer
	queried []string

	// gate, when set, blocks every lookup for names containing hold
	// until the channel is closed.
	gate chan struct{}
	hold string
}

func (f *fakeDNS) Lookup(_ context.Context, _, name string) []dnsclient.Answer {
	f.mu.Lock()
	f.queried = append(f.queried, name)
	f.mu.Unlock()
	if f.gate != nil && f.hold != "" && strings.Contains(name, f.hold) {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[name]
}

func healthyZone(domain string) map[string][]dnsclient.Answer {
	return map[string][]dnsclient.Answer{
		domain: {
			txt(domain, `"v=spf1 include:_spf.professionalemailservices.com ~all"`),
		},
		"pes._domainkey." + domain: {
			txt("pes._domainkey."+domain, `"v=DKIM1; k=rsa; p=MIGfMA0GCSqG"`),
		},
		"_dmarc." + domain: {
			txt("_dmarc."+domain, `"v=DMARC1; p=quarantine; rua=mailto:dmarc@`+domain+`"`),
		},
	}
}

func TestAnalyzeHealthyDomain(t *testing.T) {
	dns := &fakeDNS{records: healthyZone("example.com")}
	a := analyzer.New(analyzer.WithDNS(dns))

	result, err := a.Analyze(context.Background(), "client-a", "example.com", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.Domain != "example.com" {
		t.Errorf("Domain = %q", result.Domain)
	}
	if !result.SPF.Exists || !result.DKIM.Exists || !result.DMARC.Exists {
		t.Errorf("exists flags = spf:%v dkim:%v dmarc:%v, want all true",
			result.SPF.Exists, result.DKIM.Exists, result.DMARC.Exists)
	}
	if result.DKIM.Selector != "pes" {
		t.Errorf("Selector = %q, want the default applied", result.DKIM.Selector)
	}
	if result.DMARC.Policy != "quarantine" {
		t.Errorf("Policy = %q", result.DMARC.Policy)
	}
	if n := len(result.SPF.Errors) + len(result.SPF.Warnings) +
		len(result.DKIM.Errors) + len(result.DMARC.Errors); n != 0 {
		t.Errorf("healthy domain produced %d findings: %+v", n, result)
	}
}

func TestAnalyzeNormalizesInput(t *testing.T) {
	dns := &fakeDNS{records: healthyZone("example.com")}
	a := analyzer.New(analyzer.WithDNS(dns))

	result, err := a.Analyze(context.Background(), "client-a", "  HTTPS://Example.COM/login?x=1  ", "pes")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Domain != "example.com" {
		t.Errorf("Domain = %q, want decorations stripped", result.Domain)
	}
}

func TestAnalyzeInvalidDomain(t *testing.T) {
	dns := &fakeDNS{records: map[string][]dnsclient.Answer{}}
	a := analyzer.New(analyzer.WithDNS(dns))

	for _, input := range []string{"", "   ", "...", "no_tld", "-leading.example.com"} {
		_, err := a.Analyze(context.Background(), "client-a", input, "")
		if !errors.Is(err, analyzer.ErrInvalidDomain) {
			t.Errorf("Analyze(%q) err = %v, want ErrInvalidDomain", input, err)
		}
	}
	if len(dns.queried) != 0 {
		t.Errorf("invalid input reached DNS: %v", dns.queried)
	}
}

func TestAnalyzeQueryNames(t *testing.T) {
	dns := &fakeDNS{records: healthyZone("example.com")}
	a := analyzer.New(analyzer.WithDNS(dns))

	if _, err := a.Analyze(context.Background(), "client-a", "example.com", "s2"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	want := map[string]bool{
		"example.com":               false,
		"s2._domainkey.example.com": false,
		"_dmarc.example.com":        false,
	}
	for _, name := range dns.queried {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("expected a lookup for %q, got %v", name, dns.queried)
		}
	}
}

func TestAnalyzeLastRequestWins(t *testing.T) {
	records := healthyZone("slow.example.com")
	for name, answers := range healthyZone("fast.example.com") {
		records[name] = answers
	}
	gate := make(chan struct{})
	dns := &fakeDNS{records: records, gate: gate, hold: "slow.example.com"}
	a := analyzer.New(analyzer.WithDNS(dns))

	slowErr := make(chan error, 1)
	go func() {
		_, err := a.Analyze(context.Background(), "client-a", "slow.example.com", "")
		slowErr <- err
	}()
	waitForLookups(t, dns)

	// Same session issues a newer request while the first is in flight.
	result, err := a.Analyze(context.Background(), "client-a", "fast.example.com", "")
	if err != nil {
		t.Fatalf("superseding analysis failed: %v", err)
	}
	if result.Domain != "fast.example.com" {
		t.Errorf("Domain = %q", result.Domain)
	}

	close(gate)
	if err := <-slowErr; !errors.Is(err, analyzer.ErrStale) {
		t.Errorf("superseded analysis err = %v, want ErrStale", err)
	}
}

func TestAnalyzeSessionsDoNotInterfere(t *testing.T) {
	records := healthyZone("slow.example.com")
	for name, answers := range healthyZone("fast.example.com") {
		records[name] = answers
	}
	gate := make(chan struct{})
	dns := &fakeDNS{records: records, gate: gate, hold: "slow.example.com"}
	a := analyzer.New(analyzer.WithDNS(dns))

	type outcome struct {
		result *analyzer.AnalysisResult
		err    error
	}
	slowDone := make(chan outcome, 1)
	go func() {
		result, err := a.Analyze(context.Background(), "client-a", "slow.example.com", "")
		slowDone <- outcome{result, err}
	}()
	waitForLookups(t, dns)

	// A different client starting later must not supersede client-a.
	if _, err := a.Analyze(context.Background(), "client-b", "fast.example.com", ""); err != nil {
		t.Fatalf("client-b analysis failed: %v", err)
	}

	close(gate)
	got := <-slowDone
	if got.err != nil {
		t.Fatalf("client-a analysis discarded by an unrelated session: %v", got.err)
	}
	if got.result.Domain != "slow.example.com" || !got.result.SPF.Exists {
		t.Errorf("client-a result = %+v", got.result)
	}
}

// waitForLookups blocks until the fake resolver has seen at least one
// query, so a gated in-flight analysis is really in flight.
func waitForLookups(t *testing.T, dns *fakeDNS) {
	t.Helper()
	for {
		dns.mu.Lock()
		started := len(dns.queried) > 0
		dns.mu.Unlock()
		if started {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAnalyzePartialZone(t *testing.T) {
	// SPF only; DKIM and DMARC genuinely absent.
	dns := &fakeDNS{records: map[string][]dnsclient.Answer{
		"example.com": {txt("example.com", `"v=spf1 include:_spf.professionalemailservices.com ~all"`)},
	}}
	a := analyzer.New(analyzer.WithDNS(dns))

	result, err := a.Analyze(context.Background(), "client-a", "example.com", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !result.SPF.Exists {
		t.Error("SPF.Exists = false, want true")
	}
	if result.DKIM.Exists || result.DMARC.Exists {
		t.Error("absent records reported as existing")
	}
	if len(result.DKIM.Errors) == 0 || len(result.DMARC.Errors) == 0 {
		t.Error("absent DKIM/DMARC should each carry a finding")
	}
}
