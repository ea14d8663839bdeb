package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"midas/reimbursehub/internal/handler/middleware"
	"midas/reimbursehub/internal/service"
	"midas/reimbursehub/pkg/response"
)

// currentIdentity writes a 401 and returns false when JWTAuth did not run.
func currentIdentity(c *gin.Context) (service.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Unauthorized(c, "invalid user context")
		return service.Identity{}, false
	}
	return *id, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors onto the response envelope. Unexpected errors
// are attached to the context for the request logger and reported as 500.
func writeError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidAttachment),
		errors.Is(err, service.ErrNoActiveGroup):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrRefreshTokenInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrNotAMember):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyUsed),
		errors.Is(err, service.ErrAlreadyMember),
		errors.Is(err, service.ErrDuplicateInviteCode),
		errors.Is(err, service.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, service.ErrExpired):
		status = http.StatusGone
	case errors.Is(err, service.ErrClassificationUnavailable):
		response.BadGateway(c, service.ErrClassificationUnavailable.Error())
		_ = c.Error(err)
		return
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		response.InternalError(c, fallback)
		return
	}
	response.Error(c, status, err.Error())
}
