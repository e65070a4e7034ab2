package group

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/sharedexpenses/pkg/logger"
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
	"github.com/fkhayef/sharedexpenses/pkg/request"
	"github.com/fkhayef/sharedexpenses/pkg/response"
)

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// Register attaches the group endpoints to r. Other features mount their
// group-scoped routes next to these.
func (h *Handler) Register(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{groupId}", h.GetByID)
	r.Put("/{groupId}", h.Update)
	r.Delete("/{groupId}", h.Delete)

	// Member management
	r.Get("/{groupId}/members", h.GetMembers)
	r.Put("/{groupId}/members/{userId}", h.UpdateMember)
	r.Delete("/{groupId}/members/{userId}", h.RemoveMember)
	r.Post("/{groupId}/leave", h.Leave)
}

// RespondError maps group errors onto HTTP responses. Anything it does not
// recognise is logged and answered with a generic 500 carrying fallback.
func RespondError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrMemberNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotMember):
		response.Forbidden(w, "You are not a member of this group")
	case errors.Is(err, ErrNotAdmin):
		response.Forbidden(w, "Only group admins can perform this action")
	case errors.Is(err, ErrNotSelf):
		response.Forbidden(w, "Members can only change their own income")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "You do not have permission to perform this action")
	case errors.Is(err, ErrHasUnpaidDebt):
		response.Conflict(w, "You have unpaid expenses in this group. Please settle them before leaving.")
	case errors.Is(err, ErrSoleAdmin):
		response.Conflict(w, "You are the only admin of this group. Promote another member to admin first.")
	case errors.Is(err, ErrRemoveSelf):
		response.BadRequest(w, "Use leave to remove yourself from a group")
	default:
		logger.FromRequest(r).WithError(err).Error(fallback)
		response.InternalError(w, fallback)
	}
}

// Create handles POST /groups
// @Summary      Create a new group
// @Description  Create a new group and add the creator as admin
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	group, err := h.service.Create(r.Context(), creatorID, &req)
	if err != nil {
		RespondError(w, r, err, "Failed to create group")
		return
	}

	response.JSON(w, http.StatusCreated, group.ToResponse())
}

// GetByID handles GET /groups/{groupId}
// @Summary      Get group by ID
// @Description  Get a group with all its members
// @Tags         groups
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/{groupId} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	group, members, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		RespondError(w, r, err, "Failed to get group")
		return
	}

	resp := group.ToResponse()
	resp.Members = membersToResponse(members)
	response.JSON(w, http.StatusOK, resp)
}

// List handles GET /groups
// @Summary      List my groups
// @Description  Get a paginated list of groups for the current user
// @Tags         groups
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Router       /groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	page, perPage := request.Pagination(r)

	groups, total, err := h.service.ListByUserID(r.Context(), userID, page, perPage)
	if err != nil {
		RespondError(w, r, err, "Failed to list groups")
		return
	}

	groupResponses := make([]*GroupResponse, len(groups))
	for i, group := range groups {
		groupResponses[i] = group.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, groupResponses, response.NewMeta(page, perPage, total))
}

// Update handles PUT /groups/{groupId}
// @Summary      Update a group
// @Description  Change name, description or currency (admin only)
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        request body UpdateGroupRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=GroupResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{groupId} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	var req UpdateGroupRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	group, err := h.service.Update(r.Context(), id, userID, &req)
	if err != nil {
		RespondError(w, r, err, "Failed to update group")
		return
	}

	response.JSON(w, http.StatusOK, group.ToResponse())
}

// Delete handles DELETE /groups/{groupId}
// @Summary      Delete a group
// @Tags         groups
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{groupId} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	id, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		RespondError(w, r, err, "Failed to delete group")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Group deleted successfully"})
}

// GetMembers handles GET /groups/{groupId}/members
// @Summary      List group members
// @Tags         groups
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{groupId}/members [get]
func (h *Handler) GetMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	members, err := h.service.ListMembers(r.Context(), groupID, userID)
	if err != nil {
		RespondError(w, r, err, "Failed to get members")
		return
	}

	response.JSON(w, http.StatusOK, membersToResponse(members))
}

// UpdateMember handles PUT /groups/{groupId}/members/{userId}
// @Summary      Update a member
// @Description  Change a member's role (admin only) or your own declared income
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Param        userId path int true "User ID"
// @Param        request body UpdateMemberRequest true "Fields to change"
// @Success      200 {object} response.APIResponse{data=MemberResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{groupId}/members/{userId} [put]
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	userID, err := request.PathID(r, "userId")
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req UpdateMemberRequest
	if err := request.Decode(r, &req); err != nil {
		response.ValidationFailed(w, err.Error())
		return
	}

	member, err := h.service.UpdateMember(r.Context(), groupID, userID, callerID, &req)
	if err != nil {
		RespondError(w, r, err, "Failed to update member")
		return
	}

	response.JSON(w, http.StatusOK, member.ToResponse())
}

// RemoveMember handles DELETE /groups/{groupId}/members/{userId}
// @Summary      Remove a member
// @Tags         groups
// @Param        groupId path int true "Group ID"
// @Param        userId path int true "User ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{groupId}/members/{userId} [delete]
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}
	userID, err := request.PathID(r, "userId")
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if err := h.service.RemoveMember(r.Context(), groupID, userID, callerID); err != nil {
		RespondError(w, r, err, "Failed to remove member")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Member removed successfully"})
}

// Leave handles POST /groups/{groupId}/leave
// @Summary      Leave a group
// @Description  Leave a group. Refused while you owe unpaid splits or are the only admin of a group with other members.
// @Tags         groups
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=LeaveResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{groupId}/leave [post]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	groupID, err := request.PathID(r, "groupId")
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	resp, err := h.service.Leave(r.Context(), groupID, userID)
	if err != nil {
		RespondError(w, r, err, "Failed to leave group")
		return
	}

	response.JSON(w, http.StatusOK, resp)
}
