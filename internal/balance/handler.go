package balance

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/sharedexpenses/internal/group"
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
	"github.com/fkhayef/sharedexpenses/pkg/request"
	"github.com/fkhayef/sharedexpenses/pkg/response"
)

// Handler handles HTTP requests for group balances
type Handler struct {
	service *Service
}

// NewHandler creates a new balance handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register attaches the balance endpoint under the groups router
func (h *Handler) Register(r chi.Router) {
	r.Get("/{groupId}/balances", h.GetGroupBalances)
}

// GetGroupBalances handles GET /groups/{groupId}/balances
// @Summary      Get group balances
// @Description  Per-member totals and the netted unpaid debts between members
// @Tags         balances
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupBalancesResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{groupId}/balances [get]
func (h *Handler) GetGroupBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	balances, err := h.service.GroupBalances(r.Context(), groupID, userID)
	if err != nil {
		group.RespondError(w, r, err, "Failed to get group balances")
		return
	}

	response.JSON(w, http.StatusOK, balances)
}
