// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/analyzer"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/db"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/metrics"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/middleware"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/telemetry"
)

type AnalysisHandler struct {
	Analyzer *analyzer.Analyzer
	DB       *db.Database
	Limiter  middleware.RateLimiter
	Metrics  *metrics.Exporter
	Reports  *telemetry.TTLCache[string]
}

func NewAnalysisHandler(a *analyzer.Analyzer, database *db.Database, limiter middleware.RateLimiter, exporter *metrics.Exporter, reports *telemetry.TTLCache[string]) *AnalysisHandler {
	return &AnalysisHandler{
		Analyzer: a,
		DB:       database,
		Limiter:  limiter,
		Metrics:  exporter,
		Reports:  reports,
	}
}

type analyzeRequest struct {
	Domain   string `json:"domain" binding:"required"`
	Selector string `json:"selector"`
}

func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be JSON with a 'domain' field"})
		return
	}

	domain := dnsclient.Normalize(req.Domain)
	if domain == "" || !dnsclient.ValidateDomain(domain) {
		h.Metrics.ObserveAnalysis("invalid_domain", 0)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid domain name, e.g. example.com"})
		return
	}

	if result := h.Limiter.CheckAndRecord(c.ClientIP(), domain); !result.Allowed {
		h.Metrics.IncRateLimited()
		traceID, _ := c.Get("trace_id")
		slog.Info("Rate limit triggered",
			"trace_id", traceID,
			"ip", c.ClientIP(),
			"domain", domain,
			"reason", result.Reason,
			"wait_seconds", result.WaitSeconds,
		)
		var msg string
		switch result.Reason {
		case "anti_repeat":
			msg = fmt.Sprintf("This domain was just analyzed. Please wait %d seconds before re-analyzing.", result.WaitSeconds)
		default:
			msg = fmt.Sprintf("Rate limit reached. Please wait %d seconds before trying again.", result.WaitSeconds)
		}
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        msg,
			"reason":       result.Reason,
			"wait_seconds": result.WaitSeconds,
		})
		return
	}

	start := time.Now()
	// The client IP scopes last-request-wins staleness, same key the
	// rate limiter uses. Unrelated clients never supersede each other.
	result, err := h.Analyzer.Analyze(c.Request.Context(), c.ClientIP(), domain, req.Selector)
	duration := time.Since(start).Seconds()

	switch {
	case errors.Is(err, analyzer.ErrInvalidDomain):
		h.Metrics.ObserveAnalysis("invalid_domain", 0)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid domain name, e.g. example.com"})
		return
	case errors.Is(err, analyzer.ErrStale):
		h.Metrics.IncStale()
		h.Metrics.ObserveAnalysis("stale", 0)
		c.JSON(http.StatusConflict, gin.H{"error": "A newer analysis for this session superseded this one."})
		return
	case err != nil:
		h.Metrics.ObserveAnalysis("failed", 0)
		traceID, _ := c.Get("trace_id")
		slog.Error("Analysis failed", "trace_id", traceID, "domain", domain, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed. Please try again."})
		return
	}

	h.Metrics.ObserveAnalysis("success", duration)
	report := analyzer.RenderReport(result)

	response := gin.H{
		"domain":            result.Domain,
		"result":            result,
		"report":            report,
		"analysis_duration": duration,
	}

	if h.DB != nil {
		resultJSON, err := json.Marshal(result)
		if err == nil {
			id, saveErr := h.DB.SaveAnalysis(c.Request.Context(), &db.AnalysisRecord{
				Domain:      req.Domain,
				ASCIIDomain: result.Domain,
				Selector:    result.DKIM.Selector,
				Result:      resultJSON,
				Report:      report,
				DurationS:   duration,
				Success:     true,
			})
			if saveErr != nil {
				slog.Error("Failed to persist analysis", "domain", domain, "error", saveErr)
			} else {
				response["analysis_id"] = id
				h.Reports.Set(fmt.Sprintf("%d", id), report)
			}
		}
	}

	c.JSON(http.StatusOK, response)
}
