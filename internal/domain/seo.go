package domain

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// IssueType enumerates the SEO defects the health scanner can detect.
type IssueType string

const (
	IssueMissingCanonical        IssueType = "missing_canonical"
	IssueDuplicateCanonical      IssueType = "duplicate_canonical"
	IssueMissingMetaTitle        IssueType = "missing_meta_title"
	IssueMetaTitleTooLong        IssueType = "meta_title_too_long"
	IssueMissingMetaDescription  IssueType = "missing_meta_description"
	IssueMetaDescriptionTooLong  IssueType = "meta_description_too_long"
	IssueMissingSEOKeywords      IssueType = "missing_seo_keywords"
	IssueShortContent            IssueType = "short_content"
	IssueSoft404                 IssueType = "soft_404"
	IssuePageWithRedirect        IssueType = "page_with_redirect"
	IssueStaleContent            IssueType = "stale_content"
	IssueNotIndexedIntentionally IssueType = "not_indexed_intentionally"
)

// Severity grades an issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// IssueStatus is the lifecycle state of a logged issue.
type IssueStatus string

const (
	IssueOpen     IssueStatus = "open"
	IssueResolved IssueStatus = "resolved"
)

// ResolutionAutoFixed marks issues that were repaired in the same scan.
const ResolutionAutoFixed = "auto_fixed"

// SEOIssue is one row of seo_health_log.
type SEOIssue struct {
	ID               string
	URL              string
	Type             IssueType
	Severity         Severity
	Notes            string
	ArticleID        string
	Status           IssueStatus
	ResolutionStatus string
	AutoFixAttempted bool
	DetectedAt       time.Time
}

// IssueFilter narrows issue listings.
type IssueFilter struct {
	Status IssueStatus
	Type   IssueType
	Limit  int
}

// InternalStatus tracks whether a fix was confirmed on the live page.
type InternalStatus string

const (
	InternalPending InternalStatus = "pending"
	InternalPassed  InternalStatus = "passed"
	InternalFailed  InternalStatus = "failed"
)

// GSCStatus is the search-console indexing signal for a fixed URL.
type GSCStatus string

const (
	GSCPending    GSCStatus = "pending"
	GSCIndexed    GSCStatus = "indexed"
	GSCNotIndexed GSCStatus = "not_indexed"
)

// MaxVerificationRetries bounds VerificationRecord.RetryCount.
const MaxVerificationRetries = 3

// VerificationRecord is one row of seo_autofix_verification.
type VerificationRecord struct {
	ID             string
	URL            string
	IssueType      IssueType
	FixAction      string
	ArticleID      string
	InternalStatus InternalStatus
	GSCStatus      GSCStatus
	RetryCount     int
	LastError      string
	FixAppliedAt   time.Time
	RecheckedAt    *time.Time
}

// Terminal reports whether the verification pass is done with the record.
func (r VerificationRecord) Terminal() bool {
	return r.InternalStatus == InternalPassed || r.InternalStatus == InternalFailed
}

// VerificationFilter narrows verification listings.
type VerificationFilter struct {
	Status InternalStatus
	Limit  int
}

// VerificationJob asks the verification pass to run once DueAt has passed.
type VerificationJob struct {
	ID         string    `json:"id"`
	ScanID     string    `json:"scan_id"`
	Reason     string    `json:"reason"`
	DueAt      time.Time `json:"due_at"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
