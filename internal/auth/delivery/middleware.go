package delivery

import (
	"context"
	"net/http"
	"strings"

	"inquiry-backend/internal/auth/token"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ctxUserID = "userID"
	ctxEmail  = "email"

	bearerPrefix = "Bearer "
)

// AdminChecker resolves whether a subject currently holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, id uint) (bool, error)
}

// AuthMiddleware rejects requests without a valid bearer token. Every failure,
// including a panic while verifying, ends in a 401.
func AuthMiddleware(verifier token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, status, message := authenticate(c, verifier)
		if payload == nil {
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}

		setSubject(c, payload)
		c.Next()
	}
}

// OptionalAuth attaches the subject when a valid token is present and lets
// the request through either way.
func OptionalAuth(verifier token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if payload, _, _ := authenticate(c, verifier); payload != nil {
			setSubject(c, payload)
		}
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware. Anyone who is not an admin is
// refused.
func RequireAdmin(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := SubjectID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		isAdmin, err := checker.IsAdmin(c.Request.Context(), userID)
		if err != nil {
			logrus.WithError(err).WithField("component", "auth").Error("admin lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// SubjectID returns the authenticated user id set by the auth middlewares.
func SubjectID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func authenticate(c *gin.Context, verifier token.Verifier) (payload *token.Payload, status int, message string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"component": "auth",
				"panic":     r,
			}).Error("token verification panicked")
			payload, status, message = nil, http.StatusUnauthorized, "authentication failed"
		}
	}()

	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, http.StatusUnauthorized, "authorization required"
	}

	payload = verifier.Verify(strings.TrimPrefix(header, bearerPrefix))
	if payload == nil {
		return nil, http.StatusUnauthorized, "invalid or expired token"
	}
	return payload, http.StatusOK, ""
}

func setSubject(c *gin.Context, p *token.Payload) {
	c.Set(ctxUserID, p.SubjectID)
	c.Set(ctxEmail, p.Email)
}
