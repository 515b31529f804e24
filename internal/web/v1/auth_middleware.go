package v1

import (
	"github.com/duynhne/catalog-service/internal/core/domain"
	logicv1 "github.com/duynhne/catalog-service/internal/logic/v1"
	"github.com/duynhne/catalog-service/middleware"
	"github.com/gin-gonic/gin"
)

// Session token headers.
const (
	HeaderAccessToken     = "accesstoken"
	HeaderRefreshToken    = "refreshtoken"
	HeaderNewAccessToken  = "New-Access-Token"
	HeaderNewRefreshToken = "New-Refresh-Token"
)

const (
	sessionKey = "session"
	callerKey  = "caller"
)

// credentialsFrom reads the token pair from the request headers.
func credentialsFrom(c *gin.Context) logicv1.Credentials {
	return logicv1.Credentials{
		AccessToken:  c.GetHeader(HeaderAccessToken),
		RefreshToken: c.GetHeader(HeaderRefreshToken),
	}
}

// RequireAuth lets the request through only with a valid session.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return h.RequireRole()
}

// RequireRole lets the request through only with a valid session whose role
// is one of roles. No roles means any authenticated caller.
func (h *Handler) RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := h.sessions.Authorize(c.Request.Context(), credentialsFrom(c), roles...)
		if err != nil {
			abortWithError(c, err)
			return
		}
		acceptSession(c, sess)
		c.Next()
	}
}

// RequireCaller is RequireAuth plus loading the caller's user record.
func (h *Handler) RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		row, sess, err := h.sessions.ResolveCaller(c.Request.Context(), credentialsFrom(c))
		if err != nil {
			abortWithError(c, err)
			return
		}
		acceptSession(c, sess)
		c.Set(callerKey, row)
		c.Next()
	}
}

// acceptSession stores the session and hands renewed tokens to the client.
func acceptSession(c *gin.Context, sess *logicv1.Session) {
	if sess.NewAccessToken != "" {
		c.Header(HeaderNewAccessToken, sess.NewAccessToken)
	}
	if sess.NewRefreshToken != "" {
		c.Header(HeaderNewRefreshToken, sess.NewRefreshToken)
	}
	c.Set(sessionKey, sess)
	c.Set(middleware.UserIDKey, sess.Claims.SubjectID)
}

func sessionFrom(c *gin.Context) *logicv1.Session {
	return c.MustGet(sessionKey).(*logicv1.Session)
}

func callerFrom(c *gin.Context) *domain.UserRow {
	return c.MustGet(callerKey).(*domain.UserRow)
}
