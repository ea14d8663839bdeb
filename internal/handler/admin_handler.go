package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"midas/reimbursehub/internal/service"
	"midas/reimbursehub/pkg/response"
)

type AdminHandler struct {
	inviteService        service.InviteService
	groupService         service.GroupService
	reimbursementService service.ReimbursementService
}

func NewAdminHandler(
	inviteService service.InviteService,
	groupService service.GroupService,
	reimbursementService service.ReimbursementService,
) *AdminHandler {
	return &AdminHandler{
		inviteService:        inviteService,
		groupService:         groupService,
		reimbursementService: reimbursementService,
	}
}

type CreateInviteCodeRequest struct {
	GroupID      *uuid.UUID `json:"group_id,omitempty"`
	Name         string     `json:"name"`
	Company      string     `json:"company"`
	IsPrivate    bool       `json:"is_private"`
	InviteeEmail string     `json:"invitee_email"`
}

// CreateInviteCode issues a code. Without group_id it also creates the group.
func (h *AdminHandler) CreateInviteCode(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req CreateInviteCodeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	code, err := h.inviteService.IssueCode(c.Request.Context(), identity, service.IssueCodeRequest{
		GroupID:      req.GroupID,
		Name:         req.Name,
		Company:      req.Company,
		IsPrivate:    req.IsPrivate,
		InviteeEmail: req.InviteeEmail,
	})
	if err != nil {
		writeError(c, err, "failed to create invite code")
		return
	}

	response.Created(c, code)
}

type CreateGroupRequest struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	InviteCode string `json:"invite_code" binding:"required"`
	IsPrivate  bool   `json:"is_private"`
}

// CreateGroup registers a group under an admin-chosen canonical code.
func (h *AdminHandler) CreateGroup(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	group, err := h.groupService.CreateGroup(c.Request.Context(), identity, service.CreateGroupRequest{
		Name:       req.Name,
		Company:    req.Company,
		InviteCode: req.InviteCode,
		IsPrivate:  req.IsPrivate,
	})
	if err != nil {
		writeError(c, err, "failed to create group")
		return
	}

	response.Created(c, group)
}

// ListInviteCodes returns the codes issued by the caller, newest first.
func (h *AdminHandler) ListInviteCodes(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	codes, err := h.inviteService.ListCodes(c.Request.Context(), identity)
	if err != nil {
		writeError(c, err, "failed to list invite codes")
		return
	}

	response.Success(c, codes)
}

func (h *AdminHandler) ListGroups(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	groups, err := h.groupService.ListGroupsForAdmin(c.Request.Context(), identity.Email)
	if err != nil {
		writeError(c, err, "failed to list groups")
		return
	}

	response.Success(c, groups)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	users, err := h.groupService.ListMembersForAdmin(c.Request.Context(), identity.Email)
	if err != nil {
		writeError(c, err, "failed to list users")
		return
	}

	response.Success(c, users)
}

func (h *AdminHandler) ListReimbursements(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	reqs, err := h.reimbursementService.ListForAdmin(c.Request.Context(), identity.Email)
	if err != nil {
		writeError(c, err, "failed to list reimbursements")
		return
	}

	response.Success(c, reqs)
}
