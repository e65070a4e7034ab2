package payment

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/sharedexpenses/internal/invoice"
	"github.com/fkhayef/sharedexpenses/pkg/logger"
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
	"github.com/fkhayef/sharedexpenses/pkg/request"
	"github.com/fkhayef/sharedexpenses/pkg/response"
)

// Handler handles HTTP requests for payment operations
type Handler struct {
	service *Service
}

// NewHandler creates a new payment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for payment endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrPaymentNotFound), errors.Is(err, invoice.ErrInvoiceNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrInvalidDate):
		response.ValidationFailed(w, err.Error())
	default:
		logger.FromRequest(r).WithError(err).Error(fallback)
		response.InternalError(w, fallback)
	}
}

// Create handles POST /payments
// @Summary      Record a payment
// @Description  Record a payment, reconciling the linked invoice when it is completed
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body CreatePaymentRequest true "Payment"
// @Success      201 {object} response.APIResponse{data=PaymentResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /payments [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	payment, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		respondError(w, r, err, "Failed to create payment")
		return
	}

	response.JSON(w, http.StatusCreated, payment.ToResponse())
}

// List handles GET /payments
// @Summary      List my payments
// @Tags         payments
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]PaymentResponse}
// @Router       /payments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	page, perPage := request.Pagination(r)

	payments, total, err := h.service.List(r.Context(), userID, page, perPage)
	if err != nil {
		respondError(w, r, err, "Failed to list payments")
		return
	}

	out := make([]*PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = p.ToResponse()
	}
	response.JSONWithMeta(w, http.StatusOK, out, response.NewMeta(page, perPage, total))
}

// GetByID handles GET /payments/{id}
// @Summary      Get a payment
// @Tags         payments
// @Produce      json
// @Param        id path int true "Payment ID"
// @Success      200 {object} response.APIResponse{data=PaymentResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /payments/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid payment ID")
		return
	}

	payment, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		respondError(w, r, err, "Failed to get payment")
		return
	}

	response.JSON(w, http.StatusOK, payment.ToResponse())
}

// Update handles PUT /payments/{id}
// @Summary      Update a payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path int true "Payment ID"
// @Param        request body UpdatePaymentRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=PaymentResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /payments/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid payment ID")
		return
	}

	var req UpdatePaymentRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	payment, err := h.service.Update(r.Context(), id, userID, &req)
	if err != nil {
		respondError(w, r, err, "Failed to update payment")
		return
	}

	response.JSON(w, http.StatusOK, payment.ToResponse())
}

// Delete handles DELETE /payments/{id}
// @Summary      Delete a payment
// @Tags         payments
// @Produce      json
// @Param        id path int true "Payment ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /payments/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid payment ID")
		return
	}

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		respondError(w, r, err, "Failed to delete payment")
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
