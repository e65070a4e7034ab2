package expense

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/sharedexpenses/internal/expense/split"
	"github.com/fkhayef/sharedexpenses/internal/group"
	"github.com/fkhayef/sharedexpenses/internal/invoice"
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
	"github.com/fkhayef/sharedexpenses/pkg/request"
	"github.com/fkhayef/sharedexpenses/pkg/response"
)

// Handler handles HTTP requests for group expenses
type Handler struct {
	service *Service
}

// NewHandler creates a new expense handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register attaches the expense endpoints under the groups router
func (h *Handler) Register(r chi.Router) {
	r.Post("/{groupId}/expenses", h.Create)
	r.Get("/{groupId}/expenses", h.List)
	r.Get("/{groupId}/expenses/{expenseId}", h.GetByID)
	r.Post("/{groupId}/expenses/{expenseId}/pay", h.MarkSplitPaid)
}

func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrMissingFields):
		response.ValidationFailed(w, "Missing required fields")
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrRecurrenceRequired), errors.Is(err, split.ErrInvalidAmount):
		response.ValidationFailed(w, err.Error())
	case errors.Is(err, ErrExpenseNotFound), errors.Is(err, ErrSplitNotFound), errors.Is(err, invoice.ErrInvoiceNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrAlreadyPaid):
		response.Conflict(w, "This split has already been paid")
	default:
		group.RespondError(w, r, err, fallback)
	}
}

func groupAndExpenseIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return 0, 0, false
	}
	expenseID, err := request.PathID(r, "expenseId")
	if err != nil {
		response.BadRequest(w, "Invalid expense ID")
		return 0, 0, false
	}
	return groupID, expenseID, true
}

// Create handles POST /groups/{groupId}/expenses
// @Summary      Add a group expense
// @Description  Record an expense paid by the caller and split it over the group's members
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        request body CreateExpenseRequest true "Expense"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{groupId}/expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req CreateExpenseRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	expense, err := h.service.CreateExpense(r.Context(), groupID, userID, &req)
	if err != nil {
		respondError(w, r, err, "Failed to create expense")
		return
	}

	response.JSON(w, http.StatusCreated, expense.ToResponse())
}

// List handles GET /groups/{groupId}/expenses
// @Summary      List group expenses
// @Description  Get a paginated list of a group's expenses, newest first, with their splits
// @Tags         expenses
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{groupId}/expenses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	page, perPage := request.Pagination(r)

	expenses, total, err := h.service.ListExpenses(r.Context(), groupID, userID, page, perPage)
	if err != nil {
		respondError(w, r, err, "Failed to list expenses")
		return
	}

	expenseResponses := make([]*ExpenseResponse, len(expenses))
	for i, expense := range expenses {
		expenseResponses[i] = expense.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, expenseResponses, response.NewMeta(page, perPage, total))
}

// GetByID handles GET /groups/{groupId}/expenses/{expenseId}
// @Summary      Get a group expense
// @Tags         expenses
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        expenseId path int true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{groupId}/expenses/{expenseId} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, expenseID, ok := groupAndExpenseIDs(w, r)
	if !ok {
		return
	}

	expense, err := h.service.GetExpense(r.Context(), groupID, expenseID, userID)
	if err != nil {
		respondError(w, r, err, "Failed to get expense")
		return
	}

	response.JSON(w, http.StatusOK, expense.ToResponse())
}

// MarkSplitPaid handles POST /groups/{groupId}/expenses/{expenseId}/pay
// @Summary      Mark a split as paid
// @Description  Mark one member's share of an expense as paid and record the matching payment
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        expenseId path int true "Expense ID"
// @Param        request body MarkSplitPaidRequest true "Split to mark"
// @Success      200 {object} response.APIResponse{data=PayResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{groupId}/expenses/{expenseId}/pay [post]
func (h *Handler) MarkSplitPaid(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, expenseID, ok := groupAndExpenseIDs(w, r)
	if !ok {
		return
	}

	var req MarkSplitPaidRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	result, err := h.service.MarkSplitPaid(r.Context(), groupID, expenseID, req.SplitID, userID)
	if err != nil {
		respondError(w, r, err, "Failed to mark split as paid")
		return
	}

	response.JSON(w, http.StatusOK, result.ToResponse())
}
