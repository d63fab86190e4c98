package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/costcompass/llm-price-compass/pkg/compare"
	"github.com/costcompass/llm-price-compass/pkg/pipeline"
	"github.com/costcompass/llm-price-compass/pkg/pricing"
	"github.com/costcompass/llm-price-compass/pkg/store"
)

// Runner triggers a pricing update run. Satisfied by pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Server provides the pricing API: dataset queries, comparisons, user
// submissions, and an admin-triggered update run.
type Server struct {
	store       store.Store
	side        store.SideStore
	runner      Runner
	adminSecret string
	mux         *http.ServeMux
	logger      *slog.Logger
}

// NewServer creates an API server. side and runner may be nil; the routes
// that need them answer 503.
func NewServer(st store.Store, side store.SideStore, runner Runner, adminSecret string, logger *slog.Logger) *Server {
	s := &Server{
		store:       st,
		side:        side,
		runner:      runner,
		adminSecret: adminSecret,
		mux:         http.NewServeMux(),
		logger:      logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/models", s.handleModels)
	s.mux.HandleFunc("GET /api/v1/compare", s.handleCompare)
	s.mux.HandleFunc("GET /api/v1/top5", s.handleTop5)
	s.mux.HandleFunc("POST /api/v1/submit", s.handleSubmit)
	s.mux.HandleFunc("POST /api/v1/update", s.handleUpdate)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, ok := s.flatten(w, r)
	if !ok {
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		models = compare.Search(models, q)
	}
	if models == nil {
		models = []pricing.FlatModel{}
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	models, ok := s.flatten(w, r)
	if !ok {
		return
	}
	picks := compare.BestPicks(models)
	if picks == nil {
		http.Error(w, "no models in dataset", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, picks)
}

func (s *Server) handleTop5(w http.ResponseWriter, r *http.Request) {
	models, ok := s.flatten(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, compare.Charts(models))
}

// submitRequest is the user submission payload.
type submitRequest struct {
	ProviderName string  `json:"provider_name"`
	Website      string  `json:"website"`
	ModelName    string  `json:"model_name"`
	InputPrice   float64 `json:"input_price"`
	OutputPrice  float64 `json:"output_price"`
	UserEmail    string  `json:"user_email"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.side == nil {
		http.Error(w, "submissions not configured", http.StatusServiceUnavailable)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.ProviderName == "" || req.Website == "" {
		http.Error(w, "provider_name and website are required", http.StatusBadRequest)
		return
	}
	if req.InputPrice < 0 || req.OutputPrice < 0 {
		http.Error(w, "prices must not be negative", http.StatusBadRequest)
		return
	}

	sub := &store.Submission{
		ProviderName: req.ProviderName,
		Website:      req.Website,
		ModelName:    req.ModelName,
		InputPrice:   req.InputPrice,
		OutputPrice:  req.OutputPrice,
		UserEmail:    req.UserEmail,
	}
	if err := s.side.AddSubmission(r.Context(), sub); err != nil {
		s.logger.Error("add submission", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sub.ID, "status": string(sub.Status)})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if s.adminSecret == "" {
		http.Error(w, "updates not configured", http.StatusServiceUnavailable)
		return
	}
	secret := r.Header.Get("X-Admin-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.adminSecret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if s.runner == nil {
		http.Error(w, "updates not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	res, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("update run", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":        res.State,
		"changes":      len(res.Changes),
		"new_models":   res.NewModels,
		"total_models": res.TotalModels,
	})
}

func (s *Server) flatten(w http.ResponseWriter, r *http.Request) ([]pricing.FlatModel, bool) {
	ds, err := s.store.Load(r.Context())
	if errors.Is(err, store.ErrNoDataset) {
		http.Error(w, "no dataset published yet", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.logger.Error("load dataset", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return compare.Flatten(ds, time.Now()), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
