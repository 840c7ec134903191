package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ts-dashboard/internal/auth"
	"ts-dashboard/internal/dashboard"
	"ts-dashboard/internal/filter"
)

// workspace opens the dashboard of the caller. It must run behind
// requireSession.
func (h *Handler) workspace(c *gin.Context) *Workspace {
	return h.workspaces.Open(c.Request.Context(), c.GetString(ctxToken), sessionOf(c))
}

// loadContext detaches a load from the request so that a client hanging up
// does not leave the dashboard half updated. The gateway timeout bounds it.
func loadContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// respond finishes a dashboard action: scripts get the snapshot or the error,
// forms go back to the dashboard where errors are shown as banners.
func (h *Handler) respond(c *gin.Context, ws *Workspace, err error) {
	if !wantsJSON(c) {
		c.Redirect(http.StatusSeeOther, auth.DashboardPath)
		return
	}
	if err != nil {
		status := http.StatusBadGateway
		if dashboard.IsValidation(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": dashboard.Message(err)})
		return
	}
	c.JSON(http.StatusOK, ws.View.Snapshot())
}

// DashboardPage renders the dashboard view.
// GET /dashboard
func (h *Handler) DashboardPage(c *gin.Context) {
	ws := h.workspace(c)
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Snap": ws.View.Snapshot(),
	})
}

// GetDashboard returns the current snapshot.
// GET /api/dashboard
func (h *Handler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.workspace(c).View.Snapshot())
}

type selectRequest struct {
	Target string `json:"target" form:"target"`
}

// SelectTarget switches the dashboard to a station or the comparison.
// POST /api/dashboard/select
func (h *Handler) SelectTarget(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws := h.workspace(c)
	h.respond(c, ws, ws.Controller.SelectTarget(loadContext(c), req.Target))
}

// ApplyFilters replaces the filters and reloads from page one.
// POST /api/dashboard/filters
func (h *Handler) ApplyFilters(c *gin.Context) {
	var sel filter.Selection
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&sel); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		if err := c.Request.ParseForm(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sel = filter.FromValues(c.Request.PostForm)
	}
	ws := h.workspace(c)
	h.respond(c, ws, ws.Controller.ApplyFilters(loadContext(c), sel))
}

type pageRequest struct {
	Page int `json:"page" form:"page"`
}

// ChangePage loads another page of the current target.
// POST /api/dashboard/page
func (h *Handler) ChangePage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws := h.workspace(c)
	h.respond(c, ws, ws.Controller.ChangePage(loadContext(c), req.Page))
}

// ExportCSV downloads the rows currently shown.
// GET /api/dashboard/export.csv
func (h *Handler) ExportCSV(c *gin.Context) {
	ws := h.workspace(c)
	export, err := ws.Controller.ExportCSV()
	if err != nil {
		h.respond(c, ws, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Header("Content-Length", strconv.Itoa(len(export.Data)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", export.Data)
}

// DismissBanner removes an error banner.
// POST /api/dashboard/banners/:id/dismiss
func (h *Handler) DismissBanner(c *gin.Context) {
	ws := h.workspace(c)
	if !ws.View.Dismiss(c.Param("id")) && wantsJSON(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "banner not found"})
		return
	}
	h.respond(c, ws, nil)
}
