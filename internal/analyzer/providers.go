// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import "strings"

// Provider identifies a third-party email sender by a substring of its
// DKIM CNAME target hostnames. The table is injectable configuration;
// these defaults cover the senders support actually sees in tickets.
type Provider struct {
	Name      string
	Substring string
}

const (
	// DefaultTargetInclude is the platform SPF include customers are
	// asked to add when connecting a sending domain.
	DefaultTargetInclude = "include:_spf.professionalemailservices.com"

	// DefaultSelector is the selector the platform dashboard issues DKIM
	// host values under.
	DefaultSelector = "pes"
)

var DefaultProviders = []Provider{
	{Name: "SendGrid", Substring: "sendgrid"},
	{Name: "Mailgun", Substring: "mailgun"},
	{Name: "MailChimp (Mandrill)", Substring: "mandrill"},
	{Name: "MailChimp", Substring: "mcsv.net"},
	{Name: "Amazon SES", Substring: "amazonses"},
	{Name: "Mailjet", Substring: "mailjet"},
	{Name: "Postmark", Substring: "mtasv.net"},
	{Name: "SparkPost", Substring: "sparkpost"},
	{Name: "Brevo (Sendinblue)", Substring: "sendinblue"},
	{Name: "Zendesk", Substring: "zendesk"},
	{Name: "Microsoft 365", Substring: "onmicrosoft.com"},
	{Name: "Zoho Mail", Substring: "zoho"},
}

// matchProvider reports the first provider whose substring appears in
// the hostname, or "" if none match.
func matchProvider(providers []Provider, hostname string) string {
	lower := strings.ToLower(hostname)
	for _, p := range providers {
		if p.Substring != "" && strings.Contains(lower, strings.ToLower(p.Substring)) {
			return p.Name
		}
	}
	return ""
}
