package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// ReadyCheck reports whether a dependency is ready; nil means ready.
type ReadyCheck func(ctx context.Context) error

type healthBody struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler answers liveness probes with 200 {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, healthBody{Status: healthStatusOK})
	})
}

// ReadyHandler runs checks in order and answers 503 with the first failure,
// or 200 when all pass.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		for _, check := range checks {
			err := check(req.Context())
			if err != nil {
				writeHealth(rw, http.StatusServiceUnavailable, healthBody{Status: healthStatusUnavailable, Error: err.Error()})

				return
			}
		}

		writeHealth(rw, http.StatusOK, healthBody{Status: healthStatusOK})
	})
}

func writeHealth(rw http.ResponseWriter, status int, body healthBody) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	_ = json.NewEncoder(rw).Encode(body)
}
