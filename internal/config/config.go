// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package config

import (
	"fmt"
	"os"
	"strings"
)

// ProviderSpec is one entry of the injectable third-party DKIM provider
// table: a display name and the hostname substring that identifies it.
type ProviderSpec struct {
	Name      string
	Substring string
}

type Config struct {
	Port            string
	DatabaseURL     string
	DoHURL          string
	TargetInclude   string
	DefaultSelector string
	ExtraProviders  []ProviderSpec
	AppVersion      string
}

// Load reads configuration from the environment once at startup.
// DATABASE_URL is optional; without it the checker runs with history
// disabled.
func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	providers, err := parseProviders(os.Getenv("DKIM_PROVIDERS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:            port,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DoHURL:          os.Getenv("DOH_URL"),
		TargetInclude:   os.Getenv("TARGET_SPF_INCLUDE"),
		DefaultSelector: os.Getenv("DKIM_SELECTOR"),
		ExtraProviders:  providers,
		AppVersion:      "1.4.2",
	}, nil
}

// parseProviders parses "Name=substring,Name2=substring2". These are
// appended to the built-in table, so operators can react to a new
// provider showing up in tickets without a deploy.
func parseProviders(raw string) ([]ProviderSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var specs []ProviderSpec
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("malformed DKIM_PROVIDERS entry %q (want Name=substring)", pair)
		}
		specs = append(specs, ProviderSpec{
			Name:      strings.TrimSpace(parts[0]),
			Substring: strings.TrimSpace(parts[1]),
		})
	}
	return specs, nil
}
