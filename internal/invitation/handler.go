package invitation

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/sharedexpenses/internal/group"
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
	"github.com/fkhayef/sharedexpenses/pkg/request"
	"github.com/fkhayef/sharedexpenses/pkg/response"
)

// Handler handles HTTP requests for invitations
type Handler struct {
	service *Service
}

// NewHandler creates a new invitation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for the caller's own invitations
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMine)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/reject", h.Reject)

	return r
}

// Register attaches the group-scoped invitation endpoints under the groups router
func (h *Handler) Register(r chi.Router) {
	r.Post("/{groupId}/invitations", h.Invite)
	r.Get("/{groupId}/invitations", h.ListForGroup)
}

func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvitationNotFound), errors.Is(err, ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrAlreadyInvited):
		response.Conflict(w, "This email already has a pending invitation to the group")
	case errors.Is(err, ErrAlreadyMember):
		response.Conflict(w, "This user is already a member of the group")
	case errors.Is(err, ErrNotPending):
		response.Conflict(w, "This invitation has already been answered")
	case errors.Is(err, ErrNotInvitee):
		response.Forbidden(w, "This invitation was sent to a different email address")
	default:
		group.RespondError(w, r, err, fallback)
	}
}

func toResponses(invitations []*Invitation) []*InvitationResponse {
	out := make([]*InvitationResponse, len(invitations))
	for i, inv := range invitations {
		out[i] = inv.ToResponse()
	}
	return out
}

// Invite handles POST /groups/{groupId}/invitations
// @Summary      Invite someone to a group
// @Description  Invite an email address to join the group; any member may invite
// @Tags         invitations
// @Accept       json
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        request body CreateInvitationRequest true "Invitation"
// @Success      201 {object} response.APIResponse{data=InvitationResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{groupId}/invitations [post]
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req CreateInvitationRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	inv, err := h.service.Invite(r.Context(), groupID, userID, &req)
	if err != nil {
		respondError(w, r, err, "Failed to create invitation")
		return
	}

	response.JSON(w, http.StatusCreated, inv.ToResponse())
}

// ListForGroup handles GET /groups/{groupId}/invitations
// @Summary      List a group's pending invitations
// @Tags         invitations
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]InvitationResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{groupId}/invitations [get]
func (h *Handler) ListForGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	invitations, err := h.service.ListForGroup(r.Context(), groupID, userID)
	if err != nil {
		respondError(w, r, err, "Failed to list invitations")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(invitations))
}

// ListMine handles GET /invitations
// @Summary      List my pending invitations
// @Tags         invitations
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]InvitationResponse}
// @Router       /invitations [get]
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}

	invitations, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		respondError(w, r, err, "Failed to list invitations")
		return
	}

	response.JSON(w, http.StatusOK, toResponses(invitations))
}

// Accept handles POST /invitations/{id}/accept
// @Summary      Accept an invitation
// @Description  Join the group as a member
// @Tags         invitations
// @Produce      json
// @Param        id path int true "Invitation ID"
// @Success      200 {object} response.APIResponse{data=AcceptResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /invitations/{id}/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid invitation ID")
		return
	}

	inv, member, err := h.service.Accept(r.Context(), id, userID)
	if err != nil {
		respondError(w, r, err, "Failed to accept invitation")
		return
	}

	response.JSON(w, http.StatusOK, &AcceptResponse{
		Invitation: inv.ToResponse(),
		Member:     member.ToResponse(),
	})
}

// Reject handles POST /invitations/{id}/reject
// @Summary      Reject an invitation
// @Tags         invitations
// @Produce      json
// @Param        id path int true "Invitation ID"
// @Success      200 {object} response.APIResponse{data=InvitationResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /invitations/{id}/reject [post]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "id")
	if err != nil {
		response.BadRequest(w, "Invalid invitation ID")
		return
	}

	inv, err := h.service.Reject(r.Context(), id, userID)
	if err != nil {
		respondError(w, r, err, "Failed to reject invitation")
		return
	}

	response.JSON(w, http.StatusOK, inv.ToResponse())
}
