package report

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/sharedexpenses/pkg/logger"
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
	"github.com/fkhayef/sharedexpenses/pkg/response"
)

// Handler handles HTTP requests for reports
type Handler struct {
	service *Service
	now     func() time.Time
}

// NewHandler creates a new report handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

// Routes returns the router for report endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/dashboard", h.Dashboard)
	r.Get("/summary", h.Summary)
	r.Get("/categories", h.Categories)

	return r
}

func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrInvalidDateRange):
		response.BadRequest(w, err.Error())
	default:
		logger.FromRequest(r).WithError(err).Error(fallback)
		response.InternalError(w, fallback)
	}
}

// dateParam parses an optional YYYY-MM-DD query parameter
func dateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dayLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Dashboard handles GET /reports/dashboard
// @Summary      Get the spending dashboard
// @Description  Totals, budget usage and the last 6 months and 30 days of spending
// @Tags         reports
// @Produce      json
// @Success      200 {object} response.APIResponse{data=DashboardResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /reports/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}

	dashboard, err := h.service.Dashboard(r.Context(), userID, h.now())
	if err != nil {
		respondError(w, r, err, "Failed to build dashboard")
		return
	}

	response.JSON(w, http.StatusOK, dashboard)
}

// Summary handles GET /reports/summary
// @Summary      Get the invoice summary
// @Description  Invoice amounts by status and month within an optional date range, and payments by type
// @Tags         reports
// @Produce      json
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date (YYYY-MM-DD)"
// @Success      200 {object} response.APIResponse{data=SummaryResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /reports/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}

	from, err := dateParam(r, "start")
	if err != nil {
		response.BadRequest(w, "Invalid start date")
		return
	}
	to, err := dateParam(r, "end")
	if err != nil {
		response.BadRequest(w, "Invalid end date")
		return
	}

	summary, err := h.service.Summary(r.Context(), userID, from, to)
	if err != nil {
		respondError(w, r, err, "Failed to build summary")
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// Categories handles GET /reports/categories
// @Summary      Get pending invoices by category
// @Tags         reports
// @Produce      json
// @Success      200 {object} response.APIResponse{data=CategoriesResponse}
// @Router       /reports/categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}

	categories, err := h.service.Categories(r.Context(), userID)
	if err != nil {
		respondError(w, r, err, "Failed to build category breakdown")
		return
	}

	response.JSON(w, http.StatusOK, categories)
}
