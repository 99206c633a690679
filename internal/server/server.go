// Package server exposes the snapshot engine over REST.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/contactkeval/option-chain-greeks/internal/config"
	"github.com/contactkeval/option-chain-greeks/internal/engine"
	"github.com/contactkeval/option-chain-greeks/internal/logger"
	"github.com/contactkeval/option-chain-greeks/internal/report"
)

// Runner produces one snapshot table.
type Runner interface {
	Run(ctx context.Context, req engine.Request) (*report.Table, error)
}

type route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

func routes(run Runner) []route {
	return []route{
		{Method: http.MethodGet, Path: "/health", Handler: health},
		{Method: http.MethodGet, Path: "/v1/chain", Handler: chainHandler(run)},
	}
}

// NewRouter registers every route and the request logging middleware.
func NewRouter(run Runner) *mux.Router {
	r := mux.NewRouter()
	for _, rt := range routes(run) {
		r.HandleFunc(rt.Path, rt.Handler).Methods(rt.Method)
	}
	r.Use(logRequests)
	return r
}

// New builds the HTTP server, with zstd compression around the router.
func New(cfg config.ServerConfig, run Runner) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           ZstdMiddleware(NewRouter(run)),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// chainHandler serves GET /v1/chain?underlying=&expiry=&format=json|csv.
func chainHandler(run Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := engine.Request{
			Underlying: q.Get("underlying"),
			Expiry:     q.Get("expiry"),
		}

		table, err := run.Run(r.Context(), req)
		if err != nil {
			status := statusFor(err)
			logger.Errorf("event=chain_request_failed underlying=%s expiry=%s status=%d err=%v", req.Underlying, req.Expiry, status, err)
			writeError(w, status, err)
			return
		}

		if strings.EqualFold(q.Get("format"), "csv") {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileBase(table)+`.csv"`)
			if err := report.EncodeCSV(w, table); err != nil {
				logger.Errorf("event=csv_encode_failed err=%v", err)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(table); err != nil {
			logger.Errorf("event=json_encode_failed err=%v", err)
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoExpiry):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debugf("event=http_request method=%s path=%s status=%d elapsed=%s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
