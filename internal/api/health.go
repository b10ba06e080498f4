package api

import (
	"net/http"
	"time"

	"github.com/snarg/voxnote/internal/storage"
)

// ConnectionStatus reports whether a broker connection is up.
type ConnectionStatus interface {
	IsConnected() bool
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Storage       string            `json:"storage"`
	Checks        map[string]string `json:"checks"`
}

type HealthHandler struct {
	store     storage.ArtifactStore
	mqtt      ConnectionStatus
	version   string
	startTime time.Time
}

func NewHealthHandler(store storage.ArtifactStore, mqtt ConnectionStatus, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		store:     store,
		mqtt:      mqtt,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Storage check: every bucket must be listable
	checks["storage"] = "ok"
	for _, b := range storage.Buckets {
		if _, err := h.store.List(r.Context(), b); err != nil {
			checks["storage"] = "error"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	// MQTT check
	if h.mqtt != nil {
		if h.mqtt.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Storage:       h.store.Type(),
		Checks:        checks,
	})
}
