package controllers

import (
	"errors"
	"net/http"
	"time"

	"gramaalert-be/config"
	"gramaalert-be/identity"
	"gramaalert-be/middlewares"
	"gramaalert-be/models"
	"gramaalert-be/notices"
	"gramaalert-be/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthController serves registration, sign-in and email verification.
type AuthController struct {
	provider *identity.Provider
	sessions *session.Manager
	notices  notices.Queue
	server   config.ServerConfig
	tokenTTL time.Duration
	log      *zap.Logger
}

func NewAuthController(provider *identity.Provider, sessions *session.Manager, queue notices.Queue, server config.ServerConfig, tokenTTL time.Duration, log *zap.Logger) *AuthController {
	return &AuthController{
		provider: provider,
		sessions: sessions,
		notices:  queue,
		server:   server,
		tokenTTL: tokenTTL,
		log:      log,
	}
}

// Register creates an unverified account. The caller is not signed in.
func (a *AuthController) Register(c *gin.Context) {
	var input struct {
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=6"`
		Role      string `json:"role"`
		AdminCode string `json:"adminCode"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.provider.Register(c.Request.Context(), identity.RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		Role:      models.Role(input.Role),
		AdminCode: input.AdminCode,
	})
	if err != nil {
		a.authError(c, "Error registering user", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"role":      user.Role,
		"verified":  user.Verified,
		"createdAt": user.CreatedAt,
		"message":   "Account created! Please verify your email address before logging in.",
	})
}

// Login handles user login
func (a *AuthController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := a.provider.SignIn(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		a.authError(c, "Error signing in", err)
		return
	}

	domain := a.server.Domain
	// For production, don't set domain to allow cross-origin cookies
	if a.server.IsProduction() {
		domain = ""
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   int(a.tokenTTL.Seconds()),
		Path:     "/",
		Domain:   domain,
		Secure:   a.server.IsProduction(),
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})

	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"role":      user.Role,
		"verified":  user.Verified,
		"token":     token,
		"createdAt": user.CreatedAt,
		"message":   "Logged in successfully!",
	})
}

// Logout revokes the token and clears the auth_token cookie.
func (a *AuthController) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if token := middlewares.CurrentToken(c); token != "" {
		if err := a.provider.SignOut(ctx, token); err != nil {
			a.log.Error("Error logging out", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error logging out"})
			return
		}
	}
	if err := a.sessions.Forget(ctx, middlewares.CurrentSession(c).UID); err != nil {
		a.log.Warn("role cache delete failed", zap.Error(err))
	}

	c.SetCookie(middlewares.AuthCookie, "", -1, "/", a.server.Domain, a.server.IsProduction(), true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully!"})
}

// Me describes the caller's current session.
func (a *AuthController) Me(c *gin.Context) {
	s := middlewares.CurrentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"uid":      s.UID,
		"email":    s.Email,
		"role":     s.Role,
		"verified": s.Verified(),
		"state":    s.State.String(),
		"isAdmin":  s.IsAdmin(),
	})
}

// Verify consumes the link from the verification email.
func (a *AuthController) Verify(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := a.provider.Verify(ctx, c.Query("token"))
	if err != nil {
		a.authError(c, "Error verifying email", err)
		return
	}
	// The role may have been cached while the account was unverified.
	if err := a.sessions.Forget(ctx, user.ID); err != nil {
		a.log.Warn("role cache delete failed", zap.String("uid", user.ID), zap.Error(err))
	}
	a.push(c, user.ID, notices.Success, "Email verified successfully!")
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully!", "email": user.Email})
}

func (a *AuthController) ResendVerification(c *gin.Context) {
	s := middlewares.CurrentSession(c)
	if err := a.provider.ResendVerification(c.Request.Context(), s.UID); err != nil {
		a.authError(c, "Error sending verification email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verification email sent! Please check your inbox."})
}

func (a *AuthController) authError(c *gin.Context, logMsg string, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, identity.ErrEmailInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrInvalidAdminCode):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, identity.ErrVerificationNotSent):
		a.log.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error sending verification email"})
	case errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrInvalidRole),
		errors.Is(err, identity.ErrAlreadyVerified),
		errors.Is(err, identity.ErrInvalidVerifyToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		a.log.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}

func (a *AuthController) push(c *gin.Context, key string, kind notices.Kind, msg string) {
	pushNotice(c, a.notices, a.log, key, kind, msg)
}
