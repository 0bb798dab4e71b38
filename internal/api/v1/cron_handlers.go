package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type CronHandler struct {
	maintenance *service.MaintenanceService
	log         *zap.Logger
}

func NewCronHandler(m *service.MaintenanceService, log *zap.Logger) *CronHandler {
	return &CronHandler{maintenance: m, log: log}
}

// POST /cron/maintenance (Bearer CRON_SECRET)
func (h *CronHandler) Maintenance(w http.ResponseWriter, r *http.Request) {
	summary, err := h.maintenance.Run(r.Context(), utils.Now())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "maintenance complete", summary, nil)
}
