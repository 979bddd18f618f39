package controllers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"gramaalert-be/middlewares"
	"gramaalert-be/models"
	"gramaalert-be/notices"
	"gramaalert-be/store"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	recentOnDashboard = 5
	writeTimeout      = 10 * time.Second
)

// IssueController serves the issue list, reporting and the official
// status workflow.
type IssueController struct {
	store         *store.IssueStore
	notices       notices.Queue
	maxImageBytes int64
	log           *zap.Logger
	upgrader      websocket.Upgrader
	timeout       time.Duration
}

func NewIssueController(s *store.IssueStore, queue notices.Queue, maxImageBytes int64, allowedOrigins []string, log *zap.Logger) *IssueController {
	return &IssueController{
		store:         s,
		notices:       queue,
		maxImageBytes: maxImageBytes,
		log:           log,
		timeout:       writeTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// ListIssues returns issues filtered by status and category, newest first.
func (ic *IssueController) ListIssues(c *gin.Context) {
	issues, err := ic.store.FilteredSorted(c.DefaultQuery("status", models.MatchAll), c.DefaultQuery("category", models.MatchAll))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues, "totalIssues": len(issues)})
}

func (ic *IssueController) GetIssue(c *gin.Context) {
	issue, ok := ic.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}
	c.JSON(http.StatusOK, issue)
}

// Dashboard returns the counters and the most recent reports.
func (ic *IssueController) Dashboard(c *gin.Context) {
	recent, _ := ic.store.FilteredSorted(models.MatchAll, models.MatchAll)
	if len(recent) > recentOnDashboard {
		recent = recent[:recentOnDashboard]
	}
	c.JSON(http.StatusOK, gin.H{"stats": ic.store.Stats(), "recent": recent})
}

// CreateIssue accepts a multipart form with an optional "image" file.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	sess := middlewares.CurrentSession(c)

	var input struct {
		Title       string `form:"title" binding:"required,max=200"`
		Description string `form:"description" binding:"required,max=2000"`
		Category    string `form:"category"`
		Location    string `form:"location" binding:"max=200"`
	}
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draft := models.IssueDraft{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
	}
	if input.Category != "" && input.Category != "auto" {
		draft.Category = models.IssueCategory(input.Category)
	}

	img, status, err := ic.readImage(c)
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	id, err := ic.store.Submit(ctx, sess, draft, img)
	if err != nil {
		ic.issueError(c, sess.UID, "Error submitting issue", err)
		return
	}

	const msg = "Issue reported successfully! Confirmation email sent."
	pushNotice(c, ic.notices, ic.log, sess.UID, notices.Success, msg)
	c.JSON(http.StatusCreated, gin.H{"id": id, "message": msg})
}

// readImage loads the optional photo and checks its size and content type.
func (ic *IssueController) readImage(c *gin.Context) (*store.Image, int, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if ic.maxImageBytes > 0 && fh.Size > ic.maxImageBytes {
		return nil, http.StatusRequestEntityTooLarge, errors.New("image is too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, http.StatusUnsupportedMediaType, errors.New("only image uploads are accepted")
	}
	return &store.Image{
		Filename:    fh.Filename,
		ContentType: mt.String(),
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}, 0, nil
}

// AdminListIssues is ListIssues for the official view.
func (ic *IssueController) AdminListIssues(c *gin.Context) {
	ic.ListIssues(c)
}

func (ic *IssueController) UpdateStatus(c *gin.Context) {
	sess := middlewares.CurrentSession(c)

	var input struct {
		Status         string `json:"status" binding:"required"`
		ResolutionNote string `json:"resolutionNote"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	id := c.Param("id")
	err := ic.store.UpdateStatus(ctx, sess, id, models.IssueStatus(input.Status), input.ResolutionNote)
	if err != nil {
		ic.issueError(c, sess.UID, "Error updating issue", err)
		return
	}

	const msg = "Issue updated successfully! Email notification sent."
	pushNotice(c, ic.notices, ic.log, sess.UID, notices.Success, msg)
	c.JSON(http.StatusOK, gin.H{"id": id, "message": msg})
}

// ExportIssues downloads the filtered list as an xlsx workbook.
func (ic *IssueController) ExportIssues(c *gin.Context) {
	issues, err := ic.store.FilteredSorted(c.DefaultQuery("status", models.MatchAll), c.DefaultQuery("category", models.MatchAll))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := store.ExportXLSX(issues)
	if err != nil {
		ic.log.Error("Error exporting issues", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export issues"})
		return
	}
	filename := "issues-" + time.Now().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

type streamMessage struct {
	Type   string         `json:"type"`
	Issues []models.Issue `json:"issues"`
}

// Stream pushes the filtered issue list over a websocket whenever the live
// mapping changes.
func (ic *IssueController) Stream(c *gin.Context) {
	statusFilter := c.DefaultQuery("status", models.MatchAll)
	categoryFilter := c.DefaultQuery("category", models.MatchAll)
	if _, err := ic.store.FilteredSorted(statusFilter, categoryFilter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := ic.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ic.log.Warn("ws upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	changes, stop := ic.store.Watch()
	defer stop()

	// The client never sends anything; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		issues, _ := ic.store.FilteredSorted(statusFilter, categoryFilter)
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(streamMessage{Type: "snapshot", Issues: issues})
	}
	if err := send(); err != nil {
		return
	}

	for {
		select {
		case <-changes:
			if err := send(); err != nil {
				ic.log.Debug("ws write error", zap.Error(err))
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (ic *IssueController) issueError(c *gin.Context, uid, logMsg string, err error) {
	switch {
	case errors.Is(err, store.ErrNotSignedIn):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUnverified):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
	case errors.Is(err, store.ErrInvalidDraft), errors.Is(err, store.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		ic.log.Error(logMsg, zap.String("uid", uid), zap.Error(err))
		pushNotice(c, ic.notices, ic.log, uid, notices.Error, logMsg+": "+err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": logMsg})
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}
