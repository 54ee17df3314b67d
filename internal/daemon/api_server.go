package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pillcheck/internal/config"
	"pillcheck/internal/logging"
	"pillcheck/internal/services"
	"pillcheck/internal/verify"
)

// CompareRequest is the wire shape of POST /api/compare.
type CompareRequest struct {
	ReferenceImageURL string `json:"reference_image_url,omitempty"`
	TestImageURL      string `json:"test_image_url"`
	PatientID         string `json:"patient_id"`
	MedicineID        string `json:"medicine_id"`
}

// CompareResponse is the wire shape of a scored comparison.
type CompareResponse struct {
	SimilarityScore      float64  `json:"similarity_score"`
	TextSimilarityScore  *float64 `json:"text_similarity_score"`
	FinalSimilarityScore float64  `json:"final_similarity_score"`
	Match                bool     `json:"match"`
	AttemptsUsed         int      `json:"attempts_used"`
	AttemptsRemaining    int      `json:"attempts_remaining"`
	Approved             bool     `json:"approved"`
}

type apiServer struct {
	bind    string
	logger  *slog.Logger
	engine  *verify.Engine
	origins []string

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, engine *verify.Engine, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		logger:  logger,
		engine:  engine,
		origins: cfg.Server.CORSOrigins,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/compare", srv.handleCompare)
	mux.HandleFunc("/api/health", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           srv.withCORS(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.TestImageURL) == "" ||
		strings.TrimSpace(req.PatientID) == "" ||
		strings.TrimSpace(req.MedicineID) == "" {
		s.writeError(w, http.StatusBadRequest, "test_image_url, patient_id, and medicine_id are required")
		return
	}

	result, err := s.engine.Verify(r.Context(), verify.Request{
		ReferenceImageURL: req.ReferenceImageURL,
		TestImageURL:      req.TestImageURL,
		PatientID:         req.PatientID,
		MedicineID:        req.MedicineID,
	})
	if err != nil {
		if errors.Is(err, services.ErrNoReference) {
			s.writeError(w, http.StatusNotFound, "reference image not found for this medicine")
			return
		}
		s.log().Error("comparison failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "comparison failed")
		return
	}

	s.writeJSON(w, http.StatusOK, CompareResponse{
		SimilarityScore:      result.SimilarityScore,
		TextSimilarityScore:  result.TextSimilarityScore,
		FinalSimilarityScore: result.FinalSimilarityScore,
		Match:                result.Match,
		AttemptsUsed:         result.AttemptsUsed,
		AttemptsRemaining:    result.AttemptsRemaining,
		Approved:             result.Approved,
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCORS applies the configured allow-list. Loopback origins are always
// allowed so local frontends work without configuration.
func (s *apiServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) originAllowed(origin string) bool {
	for _, allowed := range s.origins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), strings.TrimRight(origin, "/")) {
			return true
		}
	}
	parsed, err := url.Parse(origin)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return false
	}
	host := parsed.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
