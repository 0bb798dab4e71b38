package utils

import (
	"encoding/json"
	"net/http"

	"github.com/dsa-patterns/dsa-api/internal/models"
)

// WriteJSONResponse writes the standard envelope. errDetail may be a string, an error or a map.
func WriteJSONResponse(w http.ResponseWriter, status int, success bool, message string, data interface{}, errDetail interface{}) {
	if e, ok := errDetail.(error); ok {
		errDetail = e.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Success: success,
		Message: message,
		Data:    data,
		Error:   errDetail,
	})
}
