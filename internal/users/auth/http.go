// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/gatekeep/internal/platform/constants"
	"github.com/taibuivan/gatekeep/internal/platform/middleware"
	requestutil "github.com/taibuivan/gatekeep/internal/platform/request"
	"github.com/taibuivan/gatekeep/internal/platform/respond"
	"github.com/taibuivan/gatekeep/internal/platform/sec"
	"github.com/taibuivan/gatekeep/internal/platform/validate"
)

// # Definitions & Constructors

// CookieOptions controls the optional refresh token cookie transport.
type CookieOptions struct {
	// Enabled sets an httpOnly cookie on login and rotation, and accepts it
	// when a request body omits the refresh token.
	Enabled bool

	// Secure marks the cookie HTTPS-only. Disable only for local development.
	Secure bool
}

// Handler implements the authentication and user administration endpoints.
//
// Public routes ignore the Authorization header entirely, so a client holding
// an expired access token can still refresh or log out.
type Handler struct {
	service  *Service
	verifier middleware.TokenVerifier
	cookie   CookieOptions
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, verifier middleware.TokenVerifier, cookie CookieOptions) *Handler {
	return &Handler{service: service, verifier: verifier, cookie: cookie}
}

// Routes returns the router mounted at /auth.
//
// # Endpoints
//   - POST /login, /refresh, /logout, /register, /forgot-password, /reset-password
//   - GET /profile, GET /sessions, POST /logout-all, POST /change-password (authenticated)
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/register", handler.register)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(handler.verifier))
		r.Use(middleware.RequireAuth)
		r.Get("/profile", handler.profile)
		r.Get("/sessions", handler.sessions)
		r.Post("/logout-all", handler.logoutAll)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// UserRoutes returns the administrative router mounted at /users.
//
// Each route demonstrates a different authorization mechanism: hierarchy,
// ownership, permission and exact allow-list.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(handler.verifier))

	router.With(middleware.RequireRole(sec.RoleModerator)).Get("/{userID}", handler.getUser)
	router.With(middleware.RequireOwnerOrAdmin(FieldUserID)).Get("/{userID}/sessions", handler.userSessions)
	router.With(middleware.RequirePermission(sec.PermSessionsRevokeAny)).Post("/{userID}/sessions/revoke", handler.revokeUserSessions)
	router.With(middleware.RequireAnyRole(sec.RoleAdmin)).Post("/{userID}/deactivate", handler.deactivateUser)

	return router
}

// # Request Payloads

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// # Response Payloads

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type revokedResponse struct {
	Success bool  `json:"success"`
	Revoked int64 `json:"revoked"`
}

// # Session Endpoints

/*
Login authenticates a user and establishes a session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Identifier, Password)

Response:
  - 200: LoginResult: Access token, refresh token and user profile
  - 400: VALIDATION_ERROR: Missing fields
  - 401: INVALID_CREDENTIALS
  - 423: ACCOUNT_LOCKED with Retry-After
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier).
		MaxLen(FieldIdentifier, input.Identifier, MaxEmailLength).
		Required(FieldPassword, input.Password).
		MaxLen(FieldPassword, input.Password, MaxPasswordLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Login(request.Context(), LoginInput{
		Identifier: input.Identifier,
		Password:   input.Password,
		Device:     deviceFrom(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, result.RefreshToken, result.RefreshTokenExpiresAt)
	respond.OK(writer, result)
}

/*
Refresh exchanges a refresh token for a new access token.

POST /api/v1/auth/refresh

Request:
  - Body: refreshRequest (RefreshToken), or the refresh cookie when enabled

Response:
  - 200: RefreshResult
  - 401: MISSING_TOKEN
  - 403: INVALID_REFRESH_TOKEN
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.Refresh(request.Context(), handler.refreshTokenFrom(request, input.RefreshToken), deviceFrom(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if result.RefreshToken != "" && result.RefreshTokenExpiresAt != nil {
		handler.setRefreshCookie(writer, result.RefreshToken, *result.RefreshTokenExpiresAt)
	}
	respond.OK(writer, result)
}

/*
Logout revokes the presented refresh token.

POST /api/v1/auth/logout

Response:
  - 200: {success: true}, also for unknown or already revoked tokens
  - 400: VALIDATION_ERROR: Missing token
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Logout(request.Context(), handler.refreshTokenFrom(request, input.RefreshToken)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.OK(writer, successResponse{Success: true})
}

/*
Profile returns the claims of the authenticated caller.

GET /api/v1/auth/profile

Response:
  - 200: ProfileView
  - 401: MISSING_TOKEN or TOKEN_EXPIRED
  - 403: TOKEN_MALFORMED or SIGNATURE_MISMATCH
*/
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, Profile(claims, subject))
}

// sessions handles GET /api/v1/auth/sessions.
func (handler *Handler) sessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.service.ListSessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

// logoutAll handles POST /api/v1/auth/logout-all.
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.service.LogoutAll(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.OK(writer, revokedResponse{Success: true, Revoked: count})
}

// # Account Endpoints

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Response:
  - 201: UserView
  - 400: VALIDATION_ERROR
  - 409: CONFLICT: Username or email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account := RegisterInput{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	}
	if err := account.Validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Register(request.Context(), account)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user.View())
}

/*
ForgotPassword starts the password reset flow.

POST /api/v1/auth/forgot-password

Response:
  - 200: The same generic message whether or not the email is registered
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, successResponse{
		Success: true,
		Message: "If the email is registered, a password reset link has been sent",
	})
}

// resetPassword handles POST /api/v1/auth/reset-password.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		AccountPassword(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, successResponse{Success: true})
}

// changePassword handles POST /api/v1/auth/change-password.
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		AccountPassword(FieldNewPassword, input.NewPassword)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ChangePassword(request.Context(), userID, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.OK(writer, successResponse{Success: true})
}

// # Administrative Endpoints

// getUser handles GET /api/v1/users/{userID}. Moderator or above.
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	userID, ok := handler.userIDParam(writer, request)
	if !ok {
		return
	}

	user, err := handler.service.GetUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// userSessions handles GET /api/v1/users/{userID}/sessions. Owner or admin.
func (handler *Handler) userSessions(writer http.ResponseWriter, request *http.Request) {
	userID, ok := handler.userIDParam(writer, request)
	if !ok {
		return
	}

	sessions, err := handler.service.ListSessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

// revokeUserSessions handles POST /api/v1/users/{userID}/sessions/revoke.
func (handler *Handler) revokeUserSessions(writer http.ResponseWriter, request *http.Request) {
	userID, ok := handler.userIDParam(writer, request)
	if !ok {
		return
	}

	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.service.RevokeUserSessions(request.Context(), subject, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, revokedResponse{Success: true, Revoked: count})
}

// deactivateUser handles POST /api/v1/users/{userID}/deactivate. Admin only.
func (handler *Handler) deactivateUser(writer http.ResponseWriter, request *http.Request) {
	userID, ok := handler.userIDParam(writer, request)
	if !ok {
		return
	}

	subject, err := requestutil.RequiredSubject(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	count, err := handler.service.DeactivateUser(request.Context(), subject, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, revokedResponse{Success: true, Revoked: count})
}

// # Helpers

func (handler *Handler) userIDParam(writer http.ResponseWriter, request *http.Request) (string, bool) {
	userID := requestutil.Param(request, FieldUserID)

	validator := &validate.Validator{}
	validator.UUID(FieldUserID, userID)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return "", false
	}
	return userID, true
}

// refreshTokenFrom prefers the body value and falls back to the cookie when enabled.
func (handler *Handler) refreshTokenFrom(request *http.Request, bodyValue string) string {
	if bodyValue != "" || !handler.cookie.Enabled {
		return bodyValue
	}
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, value string, expiresAt time.Time) {
	if !handler.cookie.Enabled {
		return
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    value,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   handler.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	if !handler.cookie.Enabled {
		return
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func deviceFrom(request *http.Request) DeviceInfo {
	return NewDeviceInfo(request.UserAgent(), middleware.RealIP(request))
}
