package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"midas/reimbursehub/internal/service"
	"midas/reimbursehub/pkg/response"
)

type GroupHandler struct {
	membershipService service.MembershipService
}

func NewGroupHandler(membershipService service.MembershipService) *GroupHandler {
	return &GroupHandler{membershipService: membershipService}
}

type JoinGroupRequest struct {
	Code string `json:"code" binding:"required"`
}

type SwitchActiveGroupRequest struct {
	GroupID uuid.UUID `json:"group_id" binding:"required"`
}

func (h *GroupHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	groups, err := h.membershipService.ListGroups(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err, "failed to list groups")
		return
	}

	response.Success(c, groups)
}

func (h *GroupHandler) Get(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}
	groupID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	group, err := h.membershipService.GetGroup(c.Request.Context(), identity, groupID)
	if err != nil {
		writeError(c, err, "failed to load group")
		return
	}

	response.Success(c, group)
}

func (h *GroupHandler) Join(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req JoinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	group, err := h.membershipService.JoinGroup(c.Request.Context(), identity, req.Code)
	if err != nil {
		writeError(c, err, "failed to join group")
		return
	}

	response.Success(c, group)
}

func (h *GroupHandler) SwitchActive(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req SwitchActiveGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.membershipService.SwitchActiveGroup(c.Request.Context(), identity, req.GroupID); err != nil {
		writeError(c, err, "failed to switch active group")
		return
	}

	response.Success(c, gin.H{"active_group_id": req.GroupID})
}
