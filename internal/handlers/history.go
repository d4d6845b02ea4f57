// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/db"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/dnsclient"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/telemetry"
)

type HistoryHandler struct {
	DB      *db.Database
	Reports *telemetry.TTLCache[string]
}

func NewHistoryHandler(database *db.Database, reports *telemetry.TTLCache[string]) *HistoryHandler {
	return &HistoryHandler{DB: database, Reports: reports}
}

func (h *HistoryHandler) History(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analysis history is not enabled on this deployment"})
		return
	}

	domain := dnsclient.Normalize(c.Query("domain"))
	if domain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid 'domain' query parameter"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := h.DB.ListRecent(c.Request.Context(), domain, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"domain":   domain,
		"analyses": records,
		"count":    len(records),
	})
}

// Report serves the stored plain-text report for one analysis, the
// exact block support asks customers to paste into tickets.
func (h *HistoryHandler) Report(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analysis history is not enabled on this deployment"})
		return
	}

	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid analysis ID"})
		return
	}

	if report, ok := h.Reports.Get(idStr); ok {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.String(http.StatusOK, report)
		return
	}

	rec, err := h.DB.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		return
	}

	h.Reports.Set(fmt.Sprintf("%d", rec.ID), rec.Report)
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, rec.Report)
}
