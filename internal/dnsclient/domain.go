// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package dnsclient

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	labelRegex = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	tldRegex   = regexp.MustCompile(`^[a-zA-Z]{2,}$`)
	asciiRegex = regexp.MustCompile(`^[a-z0-9.-]+$`)
)

// Normalize lowercases a user-typed domain and strips the decorations
// people paste from browser bars: scheme, path, trailing slash and dot.
// Returns "" when nothing usable remains.
func Normalize(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if idx := strings.IndexAny(d, "/?#"); idx >= 0 {
		d = d[:idx]
	}
	d = strings.TrimRight(d, ".")
	return strings.TrimSpace(d)
}

// ToASCII converts an internationalized domain to its punycode form for
// DNS queries, tolerating already-ASCII names the mapping rejects.
func ToASCII(domain string) (string, error) {
	p := idna.New(idna.MapForLookup(), idna.Transitional(false))
	ascii, err := p.ToASCII(domain)
	if err != nil {
		if asciiRegex.MatchString(domain) {
			labels := strings.Split(domain, ".")
			for _, label := range labels {
				if label == "" || len(label) > 63 || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
					return "", err
				}
			}
			return domain, nil
		}
		return "", err
	}
	return ascii, nil
}

const maxLabelDepth = 10

func ValidateDomain(domain string) bool {
	if domain == "" || len(domain) > 253 {
		return false
	}

	ascii, err := ToASCII(domain)
	if err != nil {
		return false
	}

	if strings.Contains(ascii, "..") || strings.HasPrefix(ascii, ".") || strings.HasPrefix(ascii, "-") {
		return false
	}

	labels := strings.Split(ascii, ".")
	if len(labels) < 2 || len(labels) > maxLabelDepth {
		return false
	}

	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		if !labelRegex.MatchString(label) {
			return false
		}
	}

	tld := labels[len(labels)-1]
	return tldRegex.MatchString(tld) || strings.HasPrefix(tld, "xn--")
}
