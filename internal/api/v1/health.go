package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

func HealthHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		err := s.Ping(ctx)
		data := map[string]interface{}{
			"db":   err == nil,
			"time": utils.Now(),
		}
		if err != nil {
			utils.WriteJSONResponse(w, http.StatusServiceUnavailable, false, "db unreachable", data, nil)
			return
		}
		utils.WriteJSONResponse(w, http.StatusOK, true, "ok", data, nil)
	}
}
