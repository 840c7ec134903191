package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ts-dashboard/internal/auth"
	"ts-dashboard/internal/session"
	"ts-dashboard/internal/source"
)

// Context keys set by requireSession.
const (
	ctxSession = "session"
	ctxToken   = "token"
)

// MsgNotLoggedIn is returned to API callers without a session.
const MsgNotLoggedIn = "請先登入"

// Handler holds shared dependencies for the HTTP handlers.
type Handler struct {
	auth       *auth.Authenticator
	src        source.Source
	workspaces *Workspaces
	jar        *CookieJar
	demo       bool
	log        *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(a *auth.Authenticator, src source.Source, workspaces *Workspaces, jar *CookieJar, demo bool, logger *zap.Logger) *Handler {
	return &Handler{
		auth:       a,
		src:        src,
		workspaces: workspaces,
		jar:        jar,
		demo:       demo,
		log:        logger,
	}
}

// current returns the session and token of the request, if any.
func (h *Handler) current(c *gin.Context) (session.Session, string, bool) {
	token := h.jar.Token(c.Request)
	if token == "" {
		return session.Session{}, "", false
	}
	sess, ok := h.auth.Current(c.Request.Context(), token)
	return sess, token, ok
}

// requireSession aborts requests without a valid session. API callers get
// 401; page requests are redirected to the login view.
func (h *Handler) requireSession(c *gin.Context) {
	sess, token, ok := h.current(c)
	if !ok {
		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MsgNotLoggedIn})
			return
		}
		c.Redirect(http.StatusSeeOther, auth.Guard(auth.ViewDashboard, false))
		c.Abort()
		return
	}
	c.Set(ctxSession, sess)
	c.Set(ctxToken, token)
	c.Next()
}

func sessionOf(c *gin.Context) session.Session {
	return c.MustGet(ctxSession).(session.Session)
}

// stationKey scopes cached responses to the caller's station and role.
func stationKey(c *gin.Context) string {
	v, ok := c.Get(ctxSession)
	if !ok {
		return ""
	}
	sess := v.(session.Session)
	role := "station"
	if sess.IsAdmin {
		role = "admin"
	}
	return sess.StationCode + "|" + role + "|" + c.Request.RequestURI
}

// wantsJSON reports whether the caller is a script rather than a form or a
// page navigation.
func wantsJSON(c *gin.Context) bool {
	if c.ContentType() == gin.MIMEJSON {
		return true
	}
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return !strings.Contains(c.GetHeader("Accept"), gin.MIMEHTML)
	}
	return false
}
