// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package dnsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/miekg/dns"
	"codeberg.org/miekg/dns/dnsutil"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/telemetry"
)

const (
	dohGoogleURL   = "https://dns.google/resolve"
	defaultTimeout = 2 * time.Second
)

var UserAgent = "LearnEmailAuth-DomainChecker/1.0 (+https://learnemailauth.com)"

func SetUserAgentVersion(version string) {
	UserAgent = fmt.Sprintf("LearnEmailAuth-DomainChecker/%s (+https://learnemailauth.com)", version)
}

// Answer is one resolver answer in original resolver order. Report text
// refers to "record #1/#2", so order is preserved end to end.
type Answer struct {
	Name string `json:"name"`
	Type uint16 `json:"type"`
	TTL  uint32 `json:"TTL"`
	Data string `json:"data"`
}

func (a Answer) IsTXT() bool   { return a.Type == dns.TypeTXT }
func (a Answer) IsCNAME() bool { return a.Type == dns.TypeCNAME }

// Client is the resolver adapter. Every failure mode (transport error,
// malformed body, non-zero resolver status, NXDOMAIN) collapses to an
// empty answer set: downstream analyzers cannot tell "no record" from
// "lookup failed" and must treat both as absence.
type Client struct {
	dohURL       string
	httpClient   *http.Client
	udpResolvers []string
	timeout      time.Duration
	telemetry    *telemetry.Registry
}

type Option func(*Client)

func WithDoHURL(u string) Option {
	return func(c *Client) { c.dohURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithUDPResolvers(ips []string) Option {
	return func(c *Client) { c.udpResolvers = ips }
}

func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.timeout = t }
}

func WithTelemetry(r *telemetry.Registry) Option {
	return func(c *Client) { c.telemetry = r }
}

func New(opts ...Option) *Client {
	c := &Client{
		dohURL: dohGoogleURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		},
		udpResolvers: []string{"8.8.8.8", "1.1.1.1"},
		timeout:      defaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func dnsTypeFromString(recordType string) (uint16, error) {
	switch strings.ToUpper(recordType) {
	case "TXT":
		return dns.TypeTXT, nil
	case "CNAME":
		return dns.TypeCNAME, nil
	case "MX":
		return dns.TypeMX, nil
	case "A":
		return dns.TypeA, nil
	case "NS":
		return dns.TypeNS, nil
	default:
		return 0, fmt.Errorf("unsupported record type: %s", recordType)
	}
}

// Lookup issues one DoH query and returns the answer set in resolver
// order. If the DoH transport itself fails (as opposed to answering
// cleanly with zero records), one UDP query per configured resolver is
// attempted before giving up. Never returns an error.
func (c *Client) Lookup(ctx context.Context, recordType, name string) []Answer {
	if name == "" || recordType == "" {
		return nil
	}

	answers, transportOK := c.dohQuery(ctx, name, recordType)
	if transportOK {
		return answers
	}

	for _, ip := range c.udpResolvers {
		answers, ok := c.udpQuery(ctx, name, recordType, ip)
		if ok {
			return answers
		}
	}
	return nil
}

type dohResponse struct {
	Status int `json:"Status"`
	Answer []struct {
		Name string `json:"name"`
		Type uint16 `json:"type"`
		TTL  uint32 `json:"TTL"`
		Data string `json:"data"`
	} `json:"Answer"`
}

// dohQuery returns the answers plus whether the transport produced a
// usable response. A clean "no records" (Status 0/3, empty Answer) is
// transportOK=true with nil answers.
func (c *Client) dohQuery(ctx context.Context, name, recordType string) ([]Answer, bool) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, "GET", c.dohURL, nil)
	if err != nil {
		return nil, false
	}

	q := url.Values{}
	q.Set("name", name)
	q.Set("type", strings.ToUpper(recordType))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/dns-json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("DoH query failed", "name", name, "type", recordType, "error", err)
		c.recordFailure("doh", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure("doh", fmt.Errorf("http status %d", resp.StatusCode))
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.recordFailure("doh", err)
		return nil, false
	}

	answers, ok := parseDoHResponse(body)
	if !ok {
		c.recordFailure("doh", fmt.Errorf("unparseable response"))
		return nil, false
	}

	c.recordSuccess("doh", time.Since(start))
	return answers, true
}

func parseDoHResponse(body []byte) ([]Answer, bool) {
	var data dohResponse
	if json.Unmarshal(body, &data) != nil {
		return nil, false
	}

	// NXDOMAIN (status 3) is a valid "no records" answer. Other non-zero
	// statuses (SERVFAIL etc.) are treated the same: absence.
	if data.Status != 0 || len(data.Answer) == 0 {
		return nil, true
	}

	answers := make([]Answer, 0, len(data.Answer))
	for _, a := range data.Answer {
		if strings.TrimSpace(a.Data) == "" {
			continue
		}
		answers = append(answers, Answer{
			Name: strings.TrimSuffix(a.Name, "."),
			Type: a.Type,
			TTL:  a.TTL,
			Data: a.Data,
		})
	}
	return answers, true
}

func (c *Client) udpQuery(ctx context.Context, name, recordType, resolverIP string) ([]Answer, bool) {
	qtype, err := dnsTypeFromString(recordType)
	if err != nil {
		return nil, false
	}

	start := time.Now()
	fqdn := dnsutil.Fqdn(name)
	msg := dns.NewMsg(fqdn, qtype)
	msg.RecursionDesired = true

	client := newDNSClient(c.timeout)

	r, _, err := client.Exchange(ctx, msg, "udp", net.JoinHostPort(resolverIP, "53"))
	if err != nil {
		slog.Debug("UDP query failed", "name", name, "type", recordType, "resolver", resolverIP, "error", err)
		c.recordFailure("udp", err)
		return nil, false
	}

	c.recordSuccess("udp", time.Since(start))

	if r.Rcode == dns.RcodeNameError {
		return nil, true
	}

	var answers []Answer
	for _, rr := range r.Answer {
		data := rrData(rr)
		if data == "" {
			continue
		}
		hdr := rr.Header()
		answers = append(answers, Answer{
			Name: strings.TrimSuffix(hdr.Name, "."),
			Type: dns.RRToType(rr),
			TTL:  hdr.TTL,
			Data: data,
		})
	}
	return answers, true
}

func rrData(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.TXT:
		return strings.Join(v.TXT.Txt, "")
	case *dns.CNAME:
		return v.CNAME.Target
	case *dns.MX:
		return fmt.Sprintf("%d %s", v.MX.Preference, v.MX.Mx)
	case *dns.A:
		return v.A.Addr.String()
	case *dns.NS:
		return v.NS.Ns
	default:
		hdr := rr.Header()
		return strings.TrimPrefix(rr.String(), hdr.String())
	}
}

func newDNSClient(timeout time.Duration) *dns.Client {
	return &dns.Client{
		Transport: &dns.Transport{
			Dialer: &net.Dialer{
				Timeout: timeout,
			},
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

func (c *Client) recordSuccess(transport string, latency time.Duration) {
	if c.telemetry != nil {
		c.telemetry.RecordSuccess(transport, latency)
	}
}

func (c *Client) recordFailure(transport string, err error) {
	if c.telemetry != nil {
		c.telemetry.RecordFailure(transport, err)
	}
}
