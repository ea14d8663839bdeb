package service

import "errors"

var (
	ErrNotFound                  = errors.New("not found")
	ErrExpired                   = errors.New("invite code expired")
	ErrAlreadyUsed               = errors.New("invite code already used")
	ErrAlreadyMember             = errors.New("already a member of this group")
	ErrNotAMember                = errors.New("not a member of this group")
	ErrDuplicateInviteCode       = errors.New("invite code already maps to a group")
	ErrNoActiveGroup             = errors.New("no active group")
	ErrInvalidAttachment         = errors.New("invalid attachment")
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrUnauthorized              = errors.New("not authorized for this operation")
	ErrCodeCollision             = errors.New("invite code collision")

	ErrInvalidInput        = errors.New("invalid input")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrRefreshTokenInvalid = errors.New("refresh token invalid or revoked")
	ErrUserNotFound        = errors.New("user not found")
)
