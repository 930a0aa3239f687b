package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"identarr/internal/models"
)

// StatusHandler reports queue counters.
type StatusHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Total                 int   `json:"total"`
	Pending               int   `json:"pending"`
	Running               int   `json:"running"`
	Completed             int   `json:"completed"`
	Failed                int   `json:"failed"`
	Canceled              int   `json:"canceled"`
	AverageProcessingTime int64 `json:"average_processing_time_ms"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to derive queue stats")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		Total:                 stats.Total,
		Pending:               stats.Pending,
		Running:               stats.Running,
		Completed:             stats.Completed,
		Failed:                stats.Failed,
		Canceled:              stats.Canceled,
		AverageProcessingTime: stats.AverageProcessingTime,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
