// Package api serves predictions and the evaluation history over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/metrics"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
	"go.uber.org/zap"
)

type Predictor interface {
	Predict(ctx context.Context, symbol string) (types.Prediction, error)
	PredictBatch(ctx context.Context, symbols []string) ([]types.Prediction, error)
}

type HistoryReader interface {
	ReadHistory() ([]types.EvaluationHistoryRow, error)
}

type Server struct {
	horizon   types.Horizon
	predictor Predictor
	history   HistoryReader
	metrics   *metrics.Recorder
	log       *logger.Logger
	router    *mux.Router
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func NewServer(horizon types.Horizon, predictor Predictor, history HistoryReader, recorder *metrics.Recorder, log *logger.Logger) *Server {
	s := &Server{
		horizon:   horizon,
		predictor: predictor,
		history:   history,
		metrics:   recorder,
		log:       log.Named("api"),
		router:    mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/predictions", s.handlePredictions).Methods("GET")
	s.router.HandleFunc("/api/v1/predictions/{symbol}", s.handlePrediction).Methods("GET")
	s.router.HandleFunc("/api/v1/evaluations", s.handleEvaluations).Methods("GET")

	if recorder != nil {
		s.router.Handle("/metrics", recorder.Handler()).Methods("GET")
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", addr)
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	s.log.Info("Serving", zap.String("addr", listener.Addr().String()), zap.String("horizon", string(s.horizon)))

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "horizon": string(s.horizon)})
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	prediction, err := s.predictor.Predict(r.Context(), symbol)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.count(prediction)
	writeJSON(w, http.StatusOK, prediction)
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	var symbols []string

	for _, part := range strings.Split(r.URL.Query().Get("symbols"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			symbols = append(symbols, part)
		}
	}

	if len(symbols) == 0 {
		s.writeError(w, errors.New(errors.ErrCodeMissingParameter, "query parameter symbols is required"))

		return
	}

	predictions, err := s.predictor.PredictBatch(r.Context(), symbols)
	if err != nil {
		s.writeError(w, err)

		return
	}

	for _, p := range predictions {
		s.count(p)
	}

	writeJSON(w, http.StatusOK, predictions)
}

func (s *Server) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.history.ReadHistory()
	if err != nil {
		s.writeError(w, err)

		return
	}

	if horizon := r.URL.Query().Get("horizon"); horizon != "" {
		filtered := rows[:0:0]

		for _, row := range rows {
			if row.Horizon == horizon {
				filtered = append(filtered, row)
			}
		}

		rows = filtered
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, errors.Newf(errors.ErrCodeInvalidParameter, "invalid limit %q", raw))

			return
		}

		if limit < len(rows) {
			rows = rows[len(rows)-limit:]
		}
	}

	if rows == nil {
		rows = []types.EvaluationHistoryRow{}
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) count(p types.Prediction) {
	if s.metrics != nil {
		s.metrics.RecordPrediction(s.horizon, p.Signal)
	}
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidParameter, errors.ErrCodeMissingParameter:
		return http.StatusBadRequest
	case errors.ErrCodeModelUnavailable, errors.ErrCodeFeaturesUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)

	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Code: int(code)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
