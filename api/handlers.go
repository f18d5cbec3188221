// Package api serves the catalog and the meal over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aguxez/nutricalc/agent"
	"github.com/aguxez/nutricalc/csvio"
	"github.com/aguxez/nutricalc/metrics"
	"github.com/aguxez/nutricalc/models"
)

// maxUploadBytes bounds CSV uploads.
const maxUploadBytes = 10 << 20

type MealAdvisor interface {
	AdviseMeal(ctx context.Context) (agent.MealAdvice, error)
}

// Server exposes one session's state. Advisor may be nil.
type Server struct {
	state    *models.StateManager
	advisor  MealAdvisor
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	labels   csvio.Labels
	logger   *slog.Logger
}

type Options struct {
	Advisor  MealAdvisor
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Labels   csvio.Labels
	Logger   *slog.Logger
}

func NewServer(state *models.StateManager, opts Options) *Server {
	s := &Server{
		state:    state,
		advisor:  opts.Advisor,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		labels:   opts.Labels,
		logger:   opts.Logger,
	}
	if s.labels.Code == "" {
		s.labels = csvio.English
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /foods", s.handleListFoods)
	mux.HandleFunc("POST /foods", s.handleRegisterFood)
	mux.HandleFunc("GET /foods/export", s.handleExportFoods)
	mux.HandleFunc("POST /foods/import", s.handleImportFoods)
	mux.HandleFunc("GET /foods/{name}", s.handleLookupFood)

	mux.HandleFunc("GET /meal", s.handleGetMeal)
	mux.HandleFunc("POST /meal/items", s.handleAddMealItem)
	mux.HandleFunc("DELETE /meal/items/{index}", s.handleRemoveMealItem)
	mux.HandleFunc("POST /meal/items/{index}/up", s.handleMoveMealItem(s.state.MoveMealItemUp, "move_up"))
	mux.HandleFunc("POST /meal/items/{index}/down", s.handleMoveMealItem(s.state.MoveMealItemDown, "move_down"))
	mux.HandleFunc("POST /meal/reset", s.handleResetMeal)
	mux.HandleFunc("POST /meal/import", s.handleImportMeal)
	mux.HandleFunc("GET /meal/export", s.handleExportMeal)
	mux.HandleFunc("POST /meal/advice", s.handleAdvice)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

type registerFoodRequest struct {
	Name string `json:"name"`
	models.NutrientProfile
}

type addMealItemRequest struct {
	Food   string  `json:"food"`
	Weight float64 `json:"weight"`
	Note   string  `json:"note"`
}

type mealResponse struct {
	Items []models.MealLineItem `json:"items"`
	Total models.MealLineItem   `json:"total"`
}

func (s *Server) handleListFoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Foods())
}

func (s *Server) handleRegisterFood(w http.ResponseWriter, r *http.Request) {
	var req registerFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	err := s.state.RegisterFood(req.Name, req.NutrientProfile)
	s.record("register_food", err)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateName) {
			s.logger.Warn("food already registered", "name", req.Name)
		}
		s.writeModelError(w, err)
		return
	}

	s.logger.Info("food registered", "name", req.Name)
	writeJSON(w, http.StatusCreated, models.Food{Name: req.Name, Profile: req.NutrientProfile})
}

func (s *Server) handleLookupFood(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	profile, err := s.state.LookupFood(name)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Food{Name: name, Profile: profile})
}

func (s *Server) handleImportFoods(w http.ResponseWriter, r *http.Request) {
	body, closeBody, err := uploadedFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	defer closeBody()

	foods, err := csvio.ParseFoods(body)
	s.record("import_foods", err)
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse_error", err.Error())
		return
	}

	s.state.MergeFoods(foods)
	s.logger.Info("foods imported", "rows", len(foods))
	s.handleListFoods(w, r)
}

func (s *Server) handleExportFoods(w http.ResponseWriter, r *http.Request) {
	setCSVHeaders(w, "food_database.csv")
	if err := csvio.WriteFoods(w, s.state.Foods(), s.labels); err != nil {
		s.logger.Error("exporting foods", "error", err)
	}
}

func (s *Server) handleGetMeal(w http.ResponseWriter, r *http.Request) {
	rows := s.state.MealWithTotal()
	writeJSON(w, http.StatusOK, mealResponse{
		Items: rows[:len(rows)-1],
		Total: rows[len(rows)-1],
	})
}

func (s *Server) handleAddMealItem(w http.ResponseWriter, r *http.Request) {
	var req addMealItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	item, err := s.state.AddToMeal(req.Food, req.Weight, req.Note)
	s.record("add_meal_item", err)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleRemoveMealItem(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	err := s.state.RemoveMealItem(index)
	s.record("remove_meal_item", err)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	s.handleGetMeal(w, r)
}

func (s *Server) handleMoveMealItem(move func(int) error, operation string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := pathIndex(w, r)
		if !ok {
			return
		}
		err := move(index)
		s.record(operation, err)
		if err != nil {
			s.writeModelError(w, err)
			return
		}
		s.handleGetMeal(w, r)
	}
}

func (s *Server) handleResetMeal(w http.ResponseWriter, r *http.Request) {
	s.state.ResetMeal()
	s.record("reset_meal", nil)
	s.handleGetMeal(w, r)
}

func (s *Server) handleImportMeal(w http.ResponseWriter, r *http.Request) {
	body, closeBody, err := uploadedFile(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	defer closeBody()

	items, err := csvio.ParseMealResults(body)
	s.record("import_meal", err)
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse_error", err.Error())
		return
	}

	s.state.ImportMeal(items)
	s.logger.Info("meal imported", "rows", len(items))
	s.handleGetMeal(w, r)
}

func (s *Server) handleExportMeal(w http.ResponseWriter, r *http.Request) {
	setCSVHeaders(w, "nutrition_calculation_results.csv")
	if err := csvio.WriteMealResults(w, s.state.MealWithTotal(), s.labels); err != nil {
		s.logger.Error("exporting meal", "error", err)
	}
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "advisor_unavailable", "meal advice is not configured")
		return
	}

	s.logger.Info("generating meal advice")
	advice, err := s.advisor.AdviseMeal(r.Context())
	s.record("advise_meal", err)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyMeal) {
			writeError(w, http.StatusConflict, "empty_meal", err.Error())
			return
		}
		s.logger.Error("meal advice failed", "error", err)
		writeError(w, http.StatusBadGateway, "advisor_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

// UpdateGauges refreshes the catalog and meal gauges from the current state.
func (s *Server) UpdateGauges() {
	if s.metrics == nil {
		return
	}
	foods, meal := s.state.GetCurrentState()
	total := meal[len(meal)-1]
	s.metrics.SetCatalogSize(len(foods))
	s.metrics.SetMeal(len(meal)-1, total.WeightG, total.Nutrients.Energy)
}

func (s *Server) record(operation string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperation(operation, err)
	s.UpdateGauges()
}

func (s *Server) writeModelError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, models.ErrDuplicateName):
		status, code = http.StatusConflict, "duplicate_name"
	case errors.Is(err, models.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrIndexOutOfRange):
		status, code = http.StatusNotFound, "index_out_of_range"
	case errors.Is(err, models.ErrAtTopBoundary):
		status, code = http.StatusConflict, "at_top_boundary"
	case errors.Is(err, models.ErrAtBottomBoundary):
		status, code = http.StatusConflict, "at_bottom_boundary"
	case errors.Is(err, models.ErrEmptyName),
		errors.Is(err, models.ErrReservedName),
		errors.Is(err, models.ErrInvalidProfile),
		errors.Is(err, models.ErrInvalidWeight):
		status, code = http.StatusBadRequest, "invalid_input"
	default:
		s.logger.Error("unexpected error", "error", err)
	}
	writeError(w, status, code, err.Error())
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("invalid index %q", r.PathValue("index")))
		return 0, false
	}
	return index, true
}

// uploadedFile returns the multipart "file" field when the request is a
// form upload and the raw body otherwise.
func uploadedFile(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, fmt.Errorf("parsing upload: %w", err)
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("reading upload field \"file\": %w", err)
	}
	return f, func() { f.Close() }, nil
}

func setCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
