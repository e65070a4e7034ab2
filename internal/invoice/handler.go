package invoice

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/sharedexpenses/pkg/logger"
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
	"github.com/fkhayef/sharedexpenses/pkg/request"
	"github.com/fkhayef/sharedexpenses/pkg/response"
)

// Handler handles HTTP requests for invoice operations
type Handler struct {
	service *Service
}

// NewHandler creates a new invoice handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for invoice endpoints
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
	if errors.Is(err, ErrInvoiceNotFound) {
		response.NotFound(w, err.Error())
		return
	}
	logger.FromRequest(r).WithError(err).Error(fallback)
	response.InternalError(w, fallback)
}

// Create handles POST /invoices
// @Summary      Create an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body CreateInvoiceRequest true "Invoice"
// @Success      201 {object} response.APIResponse{data=InvoiceResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /invoices [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}

	var req CreateInvoiceRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	invoice, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		respondError(w, r, err, "Failed to create invoice")
		return
	}

	response.JSON(w, http.StatusCreated, invoice.ToResponse())
}

// List handles GET /invoices
// @Summary      List my invoices
// @Tags         invoices
// @Produce      json
// @Param        status query string false "Filter by status" Enums(pending, partial, paid)
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]InvoiceResponse}
// @Router       /invoices [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}

	var status *Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := Status(raw)
		if !s.Valid() {
			response.BadRequest(w, "status must be one of [pending partial paid]")
			return
		}
		status = &s
	}
	page, perPage := request.Pagination(r)

	invoices, total, err := h.service.List(r.Context(), userID, status, page, perPage)
	if err != nil {
		respondError(w, r, err, "Failed to list invoices")
		return
	}

	out := make([]*InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.ToResponse()
	}
	response.JSONWithMeta(w, http.StatusOK, out, response.NewMeta(page, perPage, total))
}

// GetByID handles GET /invoices/{id}
// @Summary      Get an invoice with its payments
// @Tags         invoices
// @Produce      json
// @Param        id path int true "Invoice ID"
// @Success      200 {object} response.APIResponse{data=InvoiceResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /invoices/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid invoice ID")
		return
	}

	invoice, payments, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		respondError(w, r, err, "Failed to get invoice")
		return
	}

	resp := invoice.ToResponse()
	resp.Payments = payments
	response.JSON(w, http.StatusOK, resp)
}

// Update handles PUT /invoices/{id}
// @Summary      Update an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path int true "Invoice ID"
// @Param        request body UpdateInvoiceRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=InvoiceResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /invoices/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid invoice ID")
		return
	}

	var req UpdateInvoiceRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	invoice, err := h.service.Update(r.Context(), id, userID, &req)
	if err != nil {
		respondError(w, r, err, "Failed to update invoice")
		return
	}

	response.JSON(w, http.StatusOK, invoice.ToResponse())
}

// Delete handles DELETE /invoices/{id}
// @Summary      Delete an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path int true "Invoice ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /invoices/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid invoice ID")
		return
	}

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		respondError(w, r, err, "Failed to delete invoice")
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
