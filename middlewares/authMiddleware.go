package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gramaalert-be/models"
	"gramaalert-be/session"
	"gramaalert-be/views"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionKey = "session"
	tokenKey   = "auth_token"

	// AuthCookie carries the bearer token for browser clients.
	AuthCookie = "auth_token"
)

// Authenticator turns a bearer token into the provider's credential.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*session.Credential, error)
}

// SessionResolver derives the session from a credential.
type SessionResolver interface {
	Resolve(ctx context.Context, cred *session.Credential) (session.Session, error)
}

// AuthMiddleware resolves the caller's session on every request. A missing
// or rejected token yields a signed-out session rather than an error; the
// Require* guards decide what a route needs.
func AuthMiddleware(auth Authenticator, sessions SessionResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.Session{State: session.SignedOut}

		if token := bearerToken(c); token != "" {
			cred, err := auth.Authenticate(c.Request.Context(), token)
			if err != nil {
				log.Debug("Token validation failed", zap.Error(err))
			} else {
				resolved, err := sessions.Resolve(c.Request.Context(), cred)
				if err != nil {
					log.Error("Error resolving session", zap.String("uid", cred.UID), zap.Error(err))
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
					c.Abort()
					return
				}
				sess = resolved
				c.Set(tokenKey, token)
			}
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if authHeader != "" {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil {
		return cookie
	}
	return ""
}

// CurrentSession returns the session set by AuthMiddleware, or a signed-out
// session when the middleware did not run.
func CurrentSession(c *gin.Context) session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}
	return session.Session{State: session.SignedOut}
}

// CurrentToken returns the accepted bearer token, if any.
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func RequireSignedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSession(c).SignedIn() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": views.MsgLoginRequired})
			c.Abort()
			return
		}
		c.Next()
	}
}

func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checkVerified(c) {
			return
		}
		c.Next()
	}
}

// RequireRole admits only verified sessions holding role.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checkVerified(c) {
			return
		}
		if CurrentSession(c).Role != role {
			c.JSON(http.StatusForbidden, gin.H{"error": views.MsgAdminRequired})
			c.Abort()
			return
		}
		c.Next()
	}
}

func checkVerified(c *gin.Context) bool {
	sess := CurrentSession(c)
	if !sess.SignedIn() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": views.MsgLoginRequired})
		c.Abort()
		return false
	}
	if !sess.Verified() {
		c.JSON(http.StatusForbidden, gin.H{"error": views.MsgVerifyRequired})
		c.Abort()
		return false
	}
	return true
}

var errNoSession = errors.New("no session")

// sessionUID is the limiter key for the current caller.
func sessionUID(c *gin.Context) (string, error) {
	sess := CurrentSession(c)
	if !sess.SignedIn() || sess.UID == "" {
		return "", errNoSession
	}
	return sess.UID, nil
}
