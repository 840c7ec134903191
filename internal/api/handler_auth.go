package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ts-dashboard/internal/auth"
	"ts-dashboard/internal/session"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	Success bool             `json:"success"`
	User    *session.Session `json:"user,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func loginStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func loginMessage(err error) string {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return auth.MsgNetwork
}

// LoginPage renders the login view.
// GET /
func (h *Handler) LoginPage(c *gin.Context) {
	_, _, ok := h.current(c)
	if to := auth.Guard(auth.ViewLogin, ok); to != "" {
		c.Redirect(http.StatusSeeOther, to)
		return
	}
	h.renderLogin(c, http.StatusOK, "", "")
}

func (h *Handler) renderLogin(c *gin.Context, status int, username, msg string) {
	c.HTML(status, "login.html", gin.H{
		"Username": username,
		"Error":    msg,
		"Demo":     h.demo,
	})
}

func (h *Handler) login(c *gin.Context, req loginRequest) (session.Session, error) {
	sess, token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		return session.Session{}, err
	}
	if err := h.jar.SetToken(c.Writer, c.Request, token); err != nil {
		h.log.Error("failed to set session cookie", zap.Error(err))
		return session.Session{}, err
	}
	return sess, nil
}

// LoginForm handles the login form.
// POST /login
func (h *Handler) LoginForm(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderLogin(c, http.StatusBadRequest, "", auth.MsgMissingFields)
		return
	}
	if _, err := h.login(c, req); err != nil {
		h.renderLogin(c, loginStatus(err), req.Username, loginMessage(err))
		return
	}
	c.Redirect(http.StatusSeeOther, auth.DashboardPath)
}

// LoginJSON handles script logins.
// POST /api/login
func (h *Handler) LoginJSON(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, loginResponse{Error: auth.MsgMissingFields})
		return
	}
	sess, err := h.login(c, req)
	if err != nil {
		c.JSON(loginStatus(err), loginResponse{Error: loginMessage(err)})
		return
	}
	c.JSON(http.StatusOK, loginResponse{Success: true, User: &sess})
}

// Logout ends the session and its dashboard.
// POST /logout
func (h *Handler) Logout(c *gin.Context) {
	token := h.jar.Token(c.Request)
	if token != "" {
		ctx := c.Request.Context()
		var err error
		if ws := h.workspaces.Get(token); ws != nil {
			err = ws.Controller.Logout(ctx)
		} else {
			err = h.auth.Logout(ctx, token)
		}
		if err != nil {
			h.log.Error("failed to clear session", zap.Error(err))
		}
		h.workspaces.Drop(token)
	}
	if err := h.jar.Clear(c.Writer, c.Request); err != nil {
		h.log.Warn("failed to expire session cookie", zap.Error(err))
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	c.Redirect(http.StatusSeeOther, auth.LoginPath)
}

// GetSession returns the caller's session.
// GET /api/session
func (h *Handler) GetSession(c *gin.Context) {
	sess, _, ok := h.current(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"loggedIn": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loggedIn": true, "user": sess})
}
