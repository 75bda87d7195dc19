package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"kratio/internal/logging"

	"github.com/google/uuid"
)

const (
	cacheControlNoStore = "no-store, must-revalidate"
	requestIDHeader     = "X-Request-Id"
)

// apiError is the JSON body of a failed request.
type apiError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type apiHandler func(http.ResponseWriter, *http.Request) *apiError

// restHandler serves a JSON endpoint: uncached, nosniff, errors as JSON.
func restHandler(handler apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("Cache-Control", cacheControlNoStore)
		if failure := handler(w, r); failure != nil {
			if failure.Code == "" {
				failure.Code = errorCode(failure.Status)
			}
			writeJSON(w, failure.Status, failure)
		}
	}
}

func allowOnly(w http.ResponseWriter, r *http.Request, method string) *apiError {
	if r.Method == method {
		return nil
	}
	w.Header().Set("Allow", method)
	return &apiError{Status: http.StatusMethodNotAllowed, Message: "method not allowed"}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorCode(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "invalid_request"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case status >= http.StatusInternalServerError:
		return "internal_error"
	default:
		return ""
	}
}

// statusRecorder remembers the response status. It forwards Hijack so
// websocket upgrades still work behind the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(status int) {
	if recorder.status == 0 {
		recorder.status = status
	}
	recorder.ResponseWriter.WriteHeader(status)
}

func (recorder *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := recorder.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	recorder.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// accessLog tags each request with an id and logs method, path, status and
// duration at debug level.
func accessLog(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(recorder, r)
		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		logger.Debug("api request", map[string]string{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      strconv.Itoa(status),
			"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
		})
	})
}
