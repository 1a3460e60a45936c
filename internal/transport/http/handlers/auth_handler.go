package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	authsvc "github.com/ivankudzin/portfolio/internal/services/auth"
	"github.com/ivankudzin/portfolio/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/portfolio/internal/transport/http/errors"
)

type AuthHandler struct {
	service *authsvc.Service
	logger  *zap.Logger
}

func NewAuthHandler(service *authsvc.Service, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: service, logger: logger}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), authsvc.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		TOTPCode: req.TOTPCode,
		IP:       clientIP(r),
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, toTokensResponse(res))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, toTokensResponse(res))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.service.Logout(r.Context(), identity.SID); err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.LogoutResponse{OK: true})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.service.LogoutAll(r.Context(), identity.UserID); err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.LogoutResponse{OK: true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	info, err := h.service.Me(r.Context(), identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, toMeResponse(info))
}

func (h *AuthHandler) TOTPSetup(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	setup, err := h.service.BeginTOTPSetup(r.Context(), identity.UserID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.TOTPSetupResponse{
		Secret:     setup.Secret,
		OTPAuthURL: setup.OTPAuthURL,
		QRCodePNG:  base64.StdEncoding.EncodeToString(setup.QRCodePNG),
	})
}

func (h *AuthHandler) TOTPEnable(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req dto.TOTPEnableRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.service.EnableTOTP(r.Context(), identity.UserID, req.Code); err != nil {
		h.handleError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.LogoutResponse{OK: true})
}

func (h *AuthHandler) identity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	if h.service == nil {
		writeUnavailable(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return authsvc.Identity{}, false
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func (h *AuthHandler) handleError(w http.ResponseWriter, err error) {
	var rateErr *authsvc.RateLimitError
	switch {
	case errors.As(err, &rateErr):
		retryAfter := maxInt64(1, int64(rateErr.RetryAfter/time.Second))
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Code:          "TOO_MANY_ATTEMPTS",
			Message:       "too many sign-in attempts, try again later",
			RetryAfterSec: retryAfter,
		})
	case errors.Is(err, authsvc.ErrInvalidInput):
		writeBadRequest(w, "INVALID_REQUEST", "request validation failed")
	case errors.Is(err, authsvc.ErrTOTPRequired):
		writeUnauthorized(w, "TOTP_REQUIRED", "a one-time code is required")
	case errors.Is(err, authsvc.ErrUnauthorized):
		writeUnauthorized(w, "UNAUTHORIZED", "authentication failed")
	case errors.Is(err, authsvc.ErrAccountLocked):
		httperrors.Write(w, http.StatusLocked, httperrors.APIError{
			Code:    "ACCOUNT_LOCKED",
			Message: "account is temporarily locked",
		})
	case errors.Is(err, authsvc.ErrForbidden):
		httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: "FORBIDDEN", Message: "account is disabled"})
	case errors.Is(err, authsvc.ErrTOTPEnabled):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "TOTP_ALREADY_ENABLED",
			Message: "two-factor authentication is already enabled",
		})
	case errors.Is(err, authsvc.ErrTOTPNotPending):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "TOTP_NOT_PENDING",
			Message: "start two-factor setup first",
		})
	default:
		h.logger.Error("auth request failed", zap.Error(err))
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func toTokensResponse(res authsvc.AuthResult) dto.AuthTokensResponse {
	return dto.AuthTokensResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresInSec: maxInt64(0, int64(time.Until(res.AccessExpires).Seconds())),
		Me:           toMeResponse(res.Admin),
	}
}

func toMeResponse(info authsvc.AdminInfo) dto.AuthMeResponse {
	return dto.AuthMeResponse{
		ID:          info.ID,
		Email:       info.Email,
		Role:        info.Role,
		TOTPEnabled: info.TOTPEnabled,
	}
}
