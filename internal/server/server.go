package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"detailinfra/internal/classification"
	"detailinfra/internal/csvio"
	"detailinfra/internal/pricing"
	"detailinfra/internal/remote"
	"detailinfra/internal/vehicle"
)

type Server struct {
	svc *classification.Service
	log *zap.Logger
}

// New builds the API router. A nil service gets the built-in catalog and
// dataset with no remote store.
func New(svc *classification.Service, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if svc == nil {
		svc = classification.New(classification.Deps{Logger: log})
	}
	s := &Server{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Get("/catalog", s.handleCatalog)
	r.Get("/catalog/services/{id}/steps", s.handleServiceSteps)
	r.Get("/fees/destination", s.handleDestinationFee)
	r.Post("/estimates", s.handleEstimate)
	r.Post("/classify", s.handleClassify)

	r.Route("/classifications", func(r chi.Router) {
		r.Get("/", s.handleListClassifications)
		r.Post("/", s.handleSaveClassification)
		r.Post("/rows", s.handleAddRow)
		r.Patch("/{id}/luxury", s.handleSetLuxury)
		r.Get("/makes", s.handleMakes)
		r.Get("/makes/{make}/models", s.handleModels)
		r.Post("/import", s.handleImport)
		r.Get("/export", s.handleExport)
		r.Get("/template", s.handleTemplate)
		r.Get("/pending", s.handlePending)
	})
	r.Post("/sync", s.handleSync)

	return otelhttp.NewHandler(r, "detailinfra-api")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Catalog

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Catalog())
}

func (s *Server) handleServiceSteps(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	svc, ok := s.svc.Catalog().Service(id)
	if !ok {
		writeErrorJSON(w, http.StatusNotFound, "resource_not_found", "service not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service_id": svc.ID,
		"name":       svc.Name,
		"steps":      svc.Steps,
	})
}

type FeeResponse struct {
	Miles float64 `json:"miles"`
	Fee   float64 `json:"fee"`
}

func (s *Server) handleDestinationFee(w http.ResponseWriter, r *http.Request) {
	miles, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("miles")), 64)
	if err != nil || miles < 0 {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "miles must be a non-negative number")
		return
	}
	writeJSON(w, http.StatusOK, FeeResponse{Miles: miles, Fee: pricing.DestinationFee(miles)})
}

// Estimates

// EstimateRequest prices a job either for an explicit tier or for a
// vehicle that is classified first.
type EstimateRequest struct {
	classification.EstimateRequest
	Tier string `json:"tier,omitempty"`
}

type EstimateResponse struct {
	Classification *vehicle.Result `json:"classification,omitempty"`
	Quote          pricing.Quote   `json:"quote"`
	Summary        string          `json:"summary"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if req.ServiceID == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "service_id required")
		return
	}
	if req.Miles < 0 {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "miles must be non-negative")
		return
	}
	if req.Tier != "" {
		tier, ok := pricing.ParseTier(req.Tier)
		if !ok {
			writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "unknown tier")
			return
		}
		q := s.svc.Catalog().Estimate(req.ServiceID, req.AddOnIDs, tier, req.Miles)
		writeJSON(w, http.StatusOK, EstimateResponse{Quote: q, Summary: q.Summary()})
		return
	}
	vq, err := s.svc.EstimateVehicle(r.Context(), req.EstimateRequest)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EstimateResponse{Classification: &vq.Classification, Quote: vq.Quote, Summary: vq.Summary})
}

// Classifications

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classification.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	res, err := s.svc.Classify(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type ListResponse struct {
	Rows  []vehicle.Row `json:"rows"`
	Count int           `json:"count"`
}

func (s *Server) handleListClassifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := classification.Filter{Query: q.Get("q")}
	if t := strings.TrimSpace(q.Get("type")); t != "" && !strings.EqualFold(t, "all") {
		c, ok := vehicle.ParseCategory(t)
		if !ok {
			writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "unknown type")
			return
		}
		f.Category = c
	}
	lux, err := classification.ParseLuxuryFilter(q.Get("luxury"))
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "luxury must be all, luxury or standard")
		return
	}
	f.Luxury = lux

	rows, err := s.svc.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if rows == nil {
		rows = []vehicle.Row{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Rows: rows, Count: len(rows)})
}

func (s *Server) handleMakes(w http.ResponseWriter, r *http.Request) {
	makes, err := s.svc.Makes(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"makes": makes})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	mk := strings.TrimSpace(chi.URLParam(r, "make"))
	if mk == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "make required")
		return
	}
	models, err := s.svc.Models(r.Context(), mk)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"make": mk, "models": models})
}

func (s *Server) handleSaveClassification(w http.ResponseWriter, r *http.Request) {
	var req classification.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	out, err := s.svc.Save(r.Context(), actorFrom(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, saveStatus(out), out)
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	var row vehicle.Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	out, err := s.svc.Add(r.Context(), actorFrom(r), row)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, saveStatus(out), out)
}

// saveStatus is 202 when the write only reached the local queue.
func saveStatus(out classification.SaveResult) int {
	if out.Queued {
		return http.StatusAccepted
	}
	return http.StatusOK
}

type LuxuryRequest struct {
	Luxury *bool `json:"is_luxury"`
}

func (s *Server) handleSetLuxury(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req LuxuryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if req.Luxury == nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "is_luxury required")
		return
	}
	if err := s.svc.SetLuxury(r.Context(), actorFrom(r), id, *req.Luxury); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_luxury": *req.Luxury})
}

// maxImportBytes caps the CSV body accepted by the import route.
var maxImportBytes int64 = 10 << 20

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Import(r.Context(), actorFrom(r), http.MaxBytesReader(w, r.Body, maxImportBytes), nil)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="vehicle_classification.csv"`)
	if err := s.svc.Export(r.Context(), w); err != nil {
		s.log.Error("export failed", zap.Error(err), zap.String("request_id", w.Header().Get("X-Request-ID")))
	}
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="vehicle_classification_template.csv"`)
	_ = s.svc.Template(w)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Pending(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": items, "count": len(items)})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Sync(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// actorFrom reads the caller identity headers. They are trusted as sent.
func actorFrom(r *http.Request) classification.Actor {
	return classification.Actor{
		Name: strings.TrimSpace(r.Header.Get("X-User-Name")),
		Role: strings.ToLower(strings.TrimSpace(r.Header.Get("X-User-Role"))),
	}
}

// writeServiceError maps service errors onto the standard error body.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeErrorJSON(w, http.StatusRequestEntityTooLarge, "payload_too_large",
			"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
	case errors.Is(err, classification.ErrAdminOnly):
		writeErrorJSON(w, http.StatusForbidden, "admin_only", "admins only")
	case errors.Is(err, csvio.ErrInvalidHeader):
		writeErrorJSON(w, http.StatusBadRequest, "invalid_header", "csv header must be "+csvio.HeaderLine)
	case errors.Is(err, classification.ErrInvalidRow):
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, remote.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, "resource_not_found", "not found")
	case errors.Is(err, remote.ErrUnavailable):
		writeErrorJSON(w, http.StatusServiceUnavailable, "remote_unavailable", "classification store unavailable")
	default:
		s.log.Error("request failed",
			zap.String("request_id", w.Header().Get("X-Request-ID")),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeErrorJSON(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorJSON writes a standardized JSON error response:
// {"error": {"code": string, "message": string}}
func writeErrorJSON(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// requestIDMiddleware ensures X-Request-ID is set on the response.
// If provided in the request header, it is propagated; otherwise a UUID is generated.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request with its id, status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Info("request",
				zap.String("request_id", w.Header().Get("X-Request-ID")),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}
