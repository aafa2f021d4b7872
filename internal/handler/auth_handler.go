package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/httperr"
	"crm-auth-service/internal/model"
	"crm-auth-service/pkg/jwtutil"
	"crm-auth-service/pkg/logger"
	"crm-auth-service/prometheus"
)

// AuthHandler serves registration, login and token refresh.
type AuthHandler struct {
	store  authz.Store
	auth   *authz.Authenticator
	tokens *jwtutil.JWTUtil
}

func NewAuthHandler(store authz.Store, auth *authz.Authenticator, tokens *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{store: store, auth: auth, tokens: tokens}
}

func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request"})
	}
	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if _, err := h.store.FindUserByEmail(req.Email); err == nil {
		log.Warn("Registration with existing email", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_registered")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email_already_registered"})
	} else if !errors.Is(err, authz.ErrNotFound) {
		log.Error("User lookup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	hashed, err := authz.HashPassword(req.Password)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	user := model.User{
		Email:      req.Email,
		Password:   hashed,
		GlobalRole: model.GlobalRoleUser,
		Active:     true,
	}
	if err := h.store.CreateUser(&user); err != nil {
		log.Error("Failed to create user", zap.Error(err))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	log.Info("User registered", zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := h.auth.Authenticate(req.Email, req.Password)
	if err != nil {
		// Unknown email, inactive account and wrong password all land
		// here with the same response.
		log.Warn("Login failed", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_credentials")
		return httperr.JSON(c, err)
	}

	accessToken, err := h.tokens.IssueAccessToken(user.ID, user.Email, user.GlobalRole)
	if err != nil {
		log.Error("Failed to issue access token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}
	refreshToken, err := h.tokens.IssueRefreshToken(user.ID, user.Email, user.GlobalRole)
	if err != nil {
		log.Error("Failed to issue refresh token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}

	prometheus.IncreaseActiveTokens()
	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.Uint("user_id", user.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"user":          user,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RefreshCounter.Inc()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request"})
	}

	// Issues a new access token only. The refresh token is not rotated
	// and stays valid until its own expiry.
	accessToken, err := h.tokens.Refresh(req.RefreshToken)
	if err != nil {
		log.Warn("Token refresh failed")
		prometheus.RecordAuthError("invalid_token")
		return httperr.JSON(c, authz.ErrInvalidToken)
	}

	prometheus.IncreaseActiveTokens()
	return c.JSON(http.StatusOK, echo.Map{"access_token": accessToken})
}
