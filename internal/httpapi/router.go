// Package httpapi exposes the admin endpoints that trigger scans,
// verification passes, re-indexing and AI drafting.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"BulletinBriefs/internal/domain"
	"BulletinBriefs/internal/tasks"
	"BulletinBriefs/internal/usecase"
)

// Scanner runs health scans and manual re-index requests.
type Scanner interface {
	Scan(ctx context.Context) (usecase.ScanReport, error)
	ForceReindex(ctx context.Context, url string) (tasks.Snapshot, error)
}

// Verifier runs and inspects the verification pass.
type Verifier interface {
	Run(ctx context.Context) (usecase.VerificationReport, error)
	Recheck(ctx context.Context, id string) (domain.VerificationRecord, error)
	List(ctx context.Context, filter domain.VerificationFilter) ([]domain.VerificationRecord, error)
}

// IssueLister reads the health log.
type IssueLister interface {
	List(ctx context.Context, filter domain.IssueFilter) ([]domain.SEOIssue, error)
}

// Drafter produces AI news drafts.
type Drafter interface {
	Draft(ctx context.Context, brief domain.DraftBrief) (domain.NewsDraft, error)
}

// Deps wires the use cases behind the API.
type Deps struct {
	Scanner   Scanner
	Verifier  Verifier
	Issues    IssueLister
	Drafter   Drafter
	JWTSecret string
	Logger    *slog.Logger
}

// NewRouter builds the gin engine. Routes under /api require a bearer
// token when a JWT secret is configured.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{deps: deps, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	if deps.JWTSecret != "" {
		api.Use(requireRole([]byte(deps.JWTSecret)))
	} else {
		logger.Warn("admin API running without authentication")
	}

	seoGroup := api.Group("/seo")
	seoGroup.POST("/scan", h.scan)
	seoGroup.POST("/verify", h.verify)
	seoGroup.GET("/issues", h.listIssues)
	seoGroup.GET("/verifications", h.listVerifications)
	seoGroup.POST("/verifications/:id/recheck", h.recheck)
	seoGroup.POST("/reindex", h.reindex)

	api.POST("/drafts", h.draft)

	return r
}
