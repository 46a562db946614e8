package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/infrastructure/llm"
	"BulletinBriefs/internal/usecase"
)

const defaultListLimit = 100

type handler struct {
	deps   Deps
	logger *slog.Logger
}

type issueView struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	IssueType        string    `json:"issue_type"`
	Severity         string    `json:"severity"`
	Notes            string    `json:"notes"`
	ArticleID        string    `json:"article_id,omitempty"`
	Status           string    `json:"status"`
	ResolutionStatus string    `json:"resolution_status,omitempty"`
	AutoFixAttempted bool      `json:"auto_fix_attempted"`
	DetectedAt       time.Time `json:"detected_at"`
}

func toIssueView(i domain.SEOIssue) issueView {
	return issueView{
		ID:               i.ID,
		URL:              i.URL,
		IssueType:        string(i.Type),
		Severity:         string(i.Severity),
		Notes:            i.Notes,
		ArticleID:        i.ArticleID,
		Status:           string(i.Status),
		ResolutionStatus: i.ResolutionStatus,
		AutoFixAttempted: i.AutoFixAttempted,
		DetectedAt:       i.DetectedAt,
	}
}

type verificationView struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	IssueType      string     `json:"issue_type"`
	FixAction      string     `json:"fix_action"`
	ArticleID      string     `json:"article_id,omitempty"`
	InternalStatus string     `json:"internal_status"`
	GSCStatus      string     `json:"gsc_status"`
	RetryCount     int        `json:"retry_count"`
	LastError      string     `json:"last_error,omitempty"`
	FixAppliedAt   time.Time  `json:"fix_applied_at"`
	RecheckedAt    *time.Time `json:"rechecked_at,omitempty"`
}

func toVerificationView(r domain.VerificationRecord) verificationView {
	return verificationView{
		ID:             r.ID,
		URL:            r.URL,
		IssueType:      string(r.IssueType),
		FixAction:      r.FixAction,
		ArticleID:      r.ArticleID,
		InternalStatus: string(r.InternalStatus),
		GSCStatus:      string(r.GSCStatus),
		RetryCount:     r.RetryCount,
		LastError:      r.LastError,
		FixAppliedAt:   r.FixAppliedAt,
		RecheckedAt:    r.RecheckedAt,
	}
}

func (h *handler) scan(c *gin.Context) {
	if h.deps.Scanner == nil {
		failure(c, http.StatusServiceUnavailable, "scanner not configured")
		return
	}
	report, err := h.deps.Scanner.Scan(c.Request.Context())
	if err != nil {
		h.logger.Error("scan request failed", "error", err)
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, http.StatusOK, report)
}

func (h *handler) verify(c *gin.Context) {
	if h.deps.Verifier == nil {
		failure(c, http.StatusServiceUnavailable, "verifier not configured")
		return
	}
	report, err := h.deps.Verifier.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("verification request failed", "error", err)
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, http.StatusOK, report)
}

func (h *handler) listIssues(c *gin.Context) {
	if h.deps.Issues == nil {
		failure(c, http.StatusServiceUnavailable, "issue log not configured")
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	filter := domain.IssueFilter{
		Status: domain.IssueStatus(c.Query("status")),
		Type:   domain.IssueType(c.Query("type")),
		Limit:  limit,
	}
	if filter.Status != "" && filter.Status != domain.IssueOpen && filter.Status != domain.IssueResolved {
		failure(c, http.StatusBadRequest, "status must be open or resolved")
		return
	}

	issues, err := h.deps.Issues.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list issues failed", "error", err)
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]issueView, 0, len(issues))
	for _, i := range issues {
		views = append(views, toIssueView(i))
	}
	success(c, http.StatusOK, views)
}

func (h *handler) listVerifications(c *gin.Context) {
	if h.deps.Verifier == nil {
		failure(c, http.StatusServiceUnavailable, "verifier not configured")
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	filter := domain.VerificationFilter{Status: domain.InternalStatus(c.Query("status")), Limit: limit}
	switch filter.Status {
	case "", domain.InternalPending, domain.InternalPassed, domain.InternalFailed:
	default:
		failure(c, http.StatusBadRequest, "status must be pending, passed or failed")
		return
	}

	records, err := h.deps.Verifier.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list verifications failed", "error", err)
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]verificationView, 0, len(records))
	for _, r := range records {
		views = append(views, toVerificationView(r))
	}
	success(c, http.StatusOK, views)
}

func (h *handler) recheck(c *gin.Context) {
	if h.deps.Verifier == nil {
		failure(c, http.StatusServiceUnavailable, "verifier not configured")
		return
	}
	rec, err := h.deps.Verifier.Recheck(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			failure(c, http.StatusNotFound, "verification record not found")
			return
		}
		h.logger.Error("recheck failed", "id", c.Param("id"), "error", err)
		failure(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, http.StatusOK, toVerificationView(rec))
}

type reindexRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *handler) reindex(c *gin.Context) {
	if h.deps.Scanner == nil {
		failure(c, http.StatusServiceUnavailable, "scanner not configured")
		return
	}
	var req reindexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "url is required")
		return
	}
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		failure(c, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	snap, err := h.deps.Scanner.ForceReindex(c.Request.Context(), u.String())
	if err != nil {
		failure(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	success(c, http.StatusAccepted, snap)
}

type draftRequest struct {
	Topic    string `json:"topic"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

func (h *handler) draft(c *gin.Context) {
	if h.deps.Drafter == nil {
		failure(c, http.StatusServiceUnavailable, "drafter not configured")
		return
	}
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid JSON body")
		return
	}

	draft, err := h.deps.Drafter.Draft(c.Request.Context(), domain.DraftBrief{
		Topic:    req.Topic,
		Category: req.Category,
		Notes:    req.Notes,
	})
	switch {
	case err == nil:
		success(c, http.StatusOK, draft)
	case errors.Is(err, usecase.ErrInvalidBrief):
		failure(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecase.ErrDrafterUnavailable):
		failure(c, http.StatusServiceUnavailable, err.Error())
	case llm.IsParseError(err):
		h.logger.Warn("draft response unparseable", "error", err)
		failure(c, http.StatusInternalServerError, err.Error())
	default:
		h.logger.Error("draft failed", "error", err)
		failure(c, http.StatusInternalServerError, err.Error())
	}
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 1000 {
		failure(c, http.StatusBadRequest, "limit must be between 1 and 1000")
		return 0, false
	}
	return n, true
}
