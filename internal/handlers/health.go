// Copyright (c) 2025-2026 Professional Email Services Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/db"
	"github.com/professionalemailservices3-beep/LearnEmailAuth/internal/telemetry"
)

type HealthHandler struct {
	DB        *db.Database
	Telemetry *telemetry.Registry
	Version   string
}

func NewHealthHandler(database *db.Database, registry *telemetry.Registry, version string) *HealthHandler {
	return &HealthHandler{DB: database, Telemetry: registry, Version: version}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	overall := "ok"

	dbStatus := "disabled"
	if h.DB != nil {
		dbStatus = "ok"
		if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
			dbStatus = "error"
			overall = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	// A sick resolver transport does not fail the endpoint: lookups
	// degrade to "record absent" rather than erroring, but operators
	// should see it.
	if !h.Telemetry.Healthy() {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":    overall,
		"version":   h.Version,
		"database":  dbStatus,
		"resolvers": h.Telemetry.Snapshot(),
	})
}
