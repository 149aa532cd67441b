package handlers

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"
	"sort"
	"time"

	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/utils"
	"github.com/mindspero/mindspero/internal/repository/postgres"
	"github.com/mindspero/mindspero/internal/storage"
)

const readinessTimeout = 2 * time.Second

// HealthHandler serves the liveness and readiness checks
type HealthHandler struct {
	db         *sql.DB
	migrations fs.FS
	store      storage.Store
	logger     *logger.Logger
}

// NewHealthHandler creates a new health handler. migrations is the embedded
// schema; readiness fails while any of it is unapplied.
func NewHealthHandler(db *sql.DB, migrations fs.FS, store storage.Store, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:         db,
		migrations: migrations,
		store:      store,
		logger:     log,
	}
}

// Healthz handles the liveness check
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports ready once the database answers and the schema is current
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} utils.ErrorResponse
// @Router /readyz [get]
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorWithErr(err, "Database ping failed")
		utils.WriteErrorMessage(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database connection failed")
		return
	}

	pending, err := h.pendingMigrations(ctx)
	if err != nil {
		h.logger.ErrorWithErr(err, "Migration status check failed")
		utils.WriteErrorMessage(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Schema status unavailable")
		return
	}
	if len(pending) > 0 {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse{
			Error: utils.ErrorDetail{
				Code:    "SERVICE_UNAVAILABLE",
				Message: "Schema migrations pending",
				Details: map[string][]string{"pending": pending},
			},
		})
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "connected",
		"storage":  h.store.Backend(),
	})
}

func (h *HealthHandler) pendingMigrations(ctx context.Context) ([]string, error) {
	if h.migrations == nil {
		return nil, nil
	}
	status, err := postgres.MigrationStatus(ctx, h.db, h.migrations)
	if err != nil {
		return nil, err
	}
	var pending []string
	for name, applied := range status {
		if !applied {
			pending = append(pending, name)
		}
	}
	sort.Strings(pending)
	return pending, nil
}
