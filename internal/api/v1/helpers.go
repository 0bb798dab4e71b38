package v1

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

const maxBodyBytes = 1 << 20

// decodeAndValidate reads a JSON body into dst and runs the struct validator.
// It writes the 400 response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid request body", nil, err.Error())
		return false
	}
	if fields := utils.ValidateStruct(dst); fields != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "validation failed", nil, fields)
		return false
	}
	return true
}

// decodeOptional is decodeAndValidate for bodies that may be empty, whatever the
// transfer encoding. An empty body leaves dst at its zero value.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "invalid request body", nil, err.Error())
		return false
	}
	if fields := utils.ValidateStruct(dst); fields != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "validation failed", nil, fields)
		return false
	}
	return true
}

// writeError maps a service error to its status. Unknown causes are logged and reported as 500.
func writeError(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch errors.Cause(err) {
	case service.ErrNotFound:
		status = http.StatusNotFound
	case service.ErrForbidden:
		status = http.StatusForbidden
	case service.ErrConflict:
		status = http.StatusConflict
	case service.ErrInvalid:
		status = http.StatusBadRequest
	case service.ErrUnauthorized:
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		utils.WriteJSONResponse(w, status, false, "internal error", nil, nil)
		return
	}
	utils.WriteJSONResponse(w, status, false, http.StatusText(status), nil, err.Error())
}

// clientIP returns the address set by middleware.RealIP without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func cookieDomain(r *http.Request) string {
	host := r.Host
	if strings.Contains(host, ":") {
		host = strings.Split(host, ":")[0]
	}
	return host
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryBool(r *http.Request, key string) *bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
