// Package server implements the HTTP server for the PR review metrics API.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/gsm"
	"golang.org/x/time/rate"

	"github.com/codeGROOVE-dev/prreview/pkg/github"
	"github.com/codeGROOVE-dev/prreview/pkg/report"
	"github.com/codeGROOVE-dev/prreview/pkg/review"
)

const (
	// DefaultRateLimit is the default requests per second limit.
	DefaultRateLimit = 100
	// DefaultRateBurst is the default burst size for rate limiting.
	DefaultRateBurst = 100
	// errorKey is the logging key for error messages.
	errorKey = "error"
	// maxRequestSize caps JSON request bodies.
	maxRequestSize = 1 << 20 // 1MB
	// collectConcurrency is the fetch parallelism for collection runs.
	collectConcurrency = 8
	// maxRepos caps the repository list in a collect request.
	maxRepos = 50
)

// tokenPattern matches common GitHub token formats for sanitization.
var tokenPattern = regexp.MustCompile(
	`(?i)(ghp_[a-zA-Z0-9]{36}|gho_[a-zA-Z0-9]{36}|ghs_[a-zA-Z0-9]{36}|` +
		`github_pat_[a-zA-Z0-9_]{82}|Bearer\s+[a-zA-Z0-9._\-]+|token\s+[a-zA-Z0-9._\-]+)`,
)

// repoNamePattern matches a valid GitHub repository name.
var repoNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,100}$`)

// orgNamePattern matches a valid GitHub organization login.
var orgNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][-a-zA-Z0-9]{0,38}$`)

//go:embed static/*
var staticFS embed.FS

// cacheEntry holds cached data.
// No TTL needed - Cloud Run kills processes frequently, providing natural cache invalidation.
type cacheEntry struct {
	data any
}

// Server handles HTTP requests for the PR review metrics API.
type Server struct {
	logger         *slog.Logger
	csrfProtection *http.CrossOriginProtection
	// Per-IP rate limiting.
	ipLimiters      map[string]*rate.Limiter
	allowedOrigins  []string
	ipLimitersMu    sync.RWMutex
	fallbackTokenMu sync.RWMutex
	fallbackToken   string
	serverCommit    string
	reportsDir      string
	rateLimit       int
	rateBurst       int
	allowAllCors    bool
	// In-memory cache of loaded report documents, keyed by month.
	reportCache   map[string]*cacheEntry
	reportCacheMu sync.RWMutex
	// Serializes collection runs so concurrent POST /v1/collect calls
	// cannot write the same month twice.
	collectMu sync.Mutex
}

// TeamRequest asks for a recomputed summary over a stored month with
// some users excluded (contractors, bots, departed teammates).
type TeamRequest struct {
	Month        string   `json:"month"`
	ExcludeUsers []string `json:"exclude_users,omitempty"`
	ExcludeRepos []string `json:"exclude_repos,omitempty"`
}

// TeamResponse carries the recomputed summaries.
type TeamResponse struct {
	Month         string                   `json:"month"`
	ExcludedUsers []string                 `json:"excluded_users,omitempty"`
	ExcludedRepos []string                 `json:"excluded_repos,omitempty"`
	Summary       []review.ReviewerSummary `json:"summary"`
	AuthorSummary []review.AuthorSummary   `json:"author_summary"`
	TeamSummary   review.TeamSummary       `json:"team_summary"`
	Timestamp     time.Time                `json:"timestamp"`
	Commit        string                   `json:"commit"`
}

// CollectRequest asks the server to collect one month of review data.
type CollectRequest struct {
	Org   string   `json:"org"`
	Repos []string `json:"repos"`
	Month string   `json:"month,omitempty"` // default: previous month
}

// CollectResponse summarizes a finished collection run.
type CollectResponse struct {
	Month     string    `json:"month"`
	Org       string    `json:"org"`
	PRs       int       `json:"prs"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
	Commit    string    `json:"commit"`
}

// ReportsResponse lists the stored report months.
type ReportsResponse struct {
	Months    []string  `json:"months"`
	Timestamp time.Time `json:"timestamp"`
	Commit    string    `json:"commit"`
}

// New creates a new Server instance serving reports from reportsDir.
func New(reportsDir string) *Server {
	ctx := context.Background()
	logger := slog.Default().With("component", "prreview-server")

	// Configure CSRF protection using Sec-Fetch-Site and Origin headers.
	// GET, HEAD, and OPTIONS are safe methods and automatically allowed.
	csrfProtection := http.NewCrossOriginProtection()

	logger.InfoContext(ctx, "Server initialized with CSRF protection enabled")

	server := &Server{
		logger:         logger,
		csrfProtection: csrfProtection,
		ipLimiters:     make(map[string]*rate.Limiter),
		rateLimit:      DefaultRateLimit,
		rateBurst:      DefaultRateBurst,
		reportsDir:     reportsDir,
		reportCache:    make(map[string]*cacheEntry),
	}

	// Load GitHub token at startup and cache in memory for performance and billing.
	// This avoids repeated GSM API calls which cost money.
	token := server.token(ctx)
	if token != "" {
		logger.InfoContext(ctx, "GitHub fallback token loaded at startup")
	} else {
		logger.InfoContext(ctx, "No fallback token available - collect requests must provide Authorization header")
	}

	// Start cache cleanup goroutine.
	go server.cleanupCachesPeriodically()

	return server
}

// SetCommit sets the server commit hash.
func (s *Server) SetCommit(commit string) {
	s.serverCommit = commit
}

// SetCORSConfig sets the CORS configuration.
func (s *Server) SetCORSConfig(origins string, allowAll bool) {
	ctx := context.Background()
	if allowAll {
		s.allowAllCors = true
		s.logger.WarnContext(ctx, "🚨 CORS configured to allow all origins - DEVELOPMENT MODE ONLY")
		return
	}

	s.allowAllCors = false
	if origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)

			// Validate wildcard patterns: must be *.domain.com or https://*.domain.com
			if strings.Contains(origin, "*") {
				valid := strings.HasPrefix(origin, "*.") ||
					strings.HasPrefix(origin, "https://*.") ||
					strings.HasPrefix(origin, "http://*.")
				if !valid || strings.Count(origin, "*") > 1 {
					s.logger.ErrorContext(ctx, "Invalid wildcard CORS origin", "origin", origin)
					continue
				}
			}

			s.allowedOrigins = append(s.allowedOrigins, origin)
		}
		s.logger.InfoContext(ctx, "CORS origins configured", "origins", s.allowedOrigins)
	}
}

// SetRateLimit sets the rate limiting configuration.
func (s *Server) SetRateLimit(rps int, burst int) {
	ctx := context.Background()
	s.rateLimit = rps
	s.rateBurst = burst
	s.logger.InfoContext(ctx, "Rate limit configured (per-IP)", "requests_per_sec", rps, "burst", burst)
}

// limiter returns a rate limiter for the given IP address.
func (s *Server) limiter(ctx context.Context, ip string) *rate.Limiter {
	s.ipLimitersMu.RLock()
	limiter, exists := s.ipLimiters[ip]
	s.ipLimitersMu.RUnlock()

	if exists {
		return limiter
	}

	s.ipLimitersMu.Lock()
	defer s.ipLimitersMu.Unlock()

	// Double-check after acquiring write lock.
	if existingLimiter, exists := s.ipLimiters[ip]; exists {
		return existingLimiter
	}

	limiter = rate.NewLimiter(rate.Limit(s.rateLimit), s.rateBurst)
	s.ipLimiters[ip] = limiter

	// Cleanup old limiters if map grows too large (prevent memory leak).
	const maxLimiters = 10000
	if len(s.ipLimiters) > maxLimiters {
		count := 0
		target := len(s.ipLimiters) / 2
		for ip := range s.ipLimiters {
			delete(s.ipLimiters, ip)
			count++
			if count >= target {
				break
			}
		}
		s.logger.InfoContext(ctx, "Cleaned up old IP rate limiters", "removed", count, "remaining", len(s.ipLimiters))
	}

	return limiter
}

// cleanupCachesPeriodically clears the report cache every 30 minutes to
// prevent unbounded growth and pick up reports written by other processes.
func (s *Server) cleanupCachesPeriodically() {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.reportCacheMu.Lock()
		count := len(s.reportCache)
		for key := range s.reportCache {
			delete(s.reportCache, key)
		}
		s.reportCacheMu.Unlock()

		if count > 0 {
			s.logger.Info("Cleared cache", "cache", "report", "cleared", count)
		}
	}
}

// cachedReport retrieves a cached report document.
func (s *Server) cachedReport(month string) (*report.Report, bool) {
	s.reportCacheMu.RLock()
	defer s.reportCacheMu.RUnlock()

	entry, exists := s.reportCache[month]
	if !exists {
		return nil, false
	}

	r, ok := entry.data.(*report.Report)
	return r, ok
}

// cacheReport stores a report document in cache.
func (s *Server) cacheReport(month string, r *report.Report) {
	s.reportCacheMu.Lock()
	defer s.reportCacheMu.Unlock()

	s.reportCache[month] = &cacheEntry{data: r}
}

// invalidateReport drops a month from the cache after a fresh collection.
func (s *Server) invalidateReport(month string) {
	s.reportCacheMu.Lock()
	defer s.reportCacheMu.Unlock()

	delete(s.reportCache, month)
}

// Shutdown gracefully shuts down the server.
func (*Server) Shutdown() {
	// Nothing to do - in-memory structures will be garbage collected.
}

// sanitizeError removes tokens from error messages before logging.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	return tokenPattern.ReplaceAllString(errStr, "[REDACTED_TOKEN]")
}

// clientIP extracts the client address for rate limiting and logging.
// SECURITY: X-Forwarded-For is trusted because Cloud Run (GCP) sanitizes it.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ServeHTTP implements http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Apply CSRF protection FIRST - blocks cross-origin POST requests.
	if s.csrfProtection != nil {
		if err := s.csrfProtection.Check(r); err != nil {
			s.logger.WarnContext(r.Context(), "CSRF check failed - cross-origin request denied",
				"origin", r.Header.Get("Origin"),
				"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
				"path", r.URL.Path,
				"method", r.Method,
				"remote_addr", r.RemoteAddr,
				"error", err)
			http.Error(w, "Cross-origin request denied", http.StatusForbidden)
			return
		}
	}

	// Security headers - defense in depth.
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-XSS-Protection", "1; mode=block")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")

	// Handle CORS.
	origin := r.Header.Get("Origin")
	if s.allowAllCors {
		// SECURITY: Never use wildcard with credentials - validate origin even in dev mode.
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			s.logger.DebugContext(r.Context(), "CORS allowed (dev mode)", "origin", origin)
		}
	} else if origin != "" && s.isOriginAllowed(origin) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	// Handle preflight OPTIONS request.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Route requests.
	switch {
	case r.URL.Path == "/v1/reports":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleListReports(w, r)
	case r.URL.Path == "/v1/report":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleGetReport(w, r)
	case r.URL.Path == "/v1/team":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleTeam(w, r)
	case r.URL.Path == "/v1/collect":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleCollect(w, r)
	case r.URL.Path == "/health":
		s.handleHealth(w, r)
	case strings.HasPrefix(r.URL.Path, "/static/"):
		s.handleStatic(w, r)
	case r.URL.Path == "/":
		s.handleWebUI(w, r)
	default:
		http.NotFound(w, r)
	}
}

// rateLimited applies per-IP rate limiting; true means the request was
// rejected and a response already written.
func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request, handler string) bool {
	ctx := r.Context()
	ip := clientIP(r)

	s.logger.InfoContext(ctx, "["+handler+"] Incoming request", "client_ip", ip, "method", r.Method, "path", r.URL.Path)

	if !s.limiter(ctx, ip).Allow() {
		s.logger.WarnContext(ctx, "["+handler+"] Rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return true
	}
	return false
}

// handleListReports returns the months with stored reports.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w, r, "handleListReports") {
		return
	}
	ctx := r.Context()

	months, err := report.List(s.reportsDir)
	if err != nil {
		s.logger.ErrorContext(ctx, "[handleListReports] Failed to list reports", errorKey, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.writeJSON(ctx, w, ReportsResponse{
		Months:    months,
		Timestamp: time.Now().UTC(),
		Commit:    s.serverCommit,
	})
}

// handleGetReport returns the stored report document for one month.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w, r, "handleGetReport") {
		return
	}
	ctx := r.Context()

	month := r.URL.Query().Get("month")
	if month == "" {
		month = report.PreviousMonth(time.Now().UTC())
	}

	doc, err := s.loadReport(ctx, month)
	if err != nil {
		s.respondReportError(ctx, w, month, err)
		return
	}

	s.writeJSON(ctx, w, doc)
}

// handleTeam recomputes the summaries for a stored month with users
// excluded, without touching the files on disk.
func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w, r, "handleTeam") {
		return
	}
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	var req TeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.ErrorContext(ctx, "[handleTeam] Failed to decode JSON", errorKey, sanitizeError(err))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Month == "" {
		http.Error(w, "Missing required field: month", http.StatusBadRequest)
		return
	}

	doc, err := s.loadReport(ctx, req.Month)
	if err != nil {
		s.respondReportError(ctx, w, req.Month, err)
		return
	}

	details := filterDetails(doc.Details, req.ExcludeUsers, req.ExcludeRepos)
	reviewers, authors, team := review.Summarize(details, review.DefaultConfig())

	s.writeJSON(ctx, w, TeamResponse{
		Month:         req.Month,
		ExcludedUsers: req.ExcludeUsers,
		ExcludedRepos: req.ExcludeRepos,
		Summary:       reviewers,
		AuthorSummary: authors,
		TeamSummary:   team,
		Timestamp:     time.Now().UTC(),
		Commit:        s.serverCommit,
	})
}

// filterDetails applies the exclusion lists: PRs in an excluded repo or
// authored by an excluded user are dropped, and reviews by excluded
// users are stripped from the rest.
func filterDetails(details []review.EnrichedPR, users, repos []string) []review.EnrichedPR {
	if len(users) == 0 && len(repos) == 0 {
		return details
	}

	excluded := make(map[string]bool, len(users))
	for _, u := range users {
		excluded[u] = true
	}
	excludedRepo := make(map[string]bool, len(repos))
	for _, r := range repos {
		excludedRepo[r] = true
	}

	out := make([]review.EnrichedPR, 0, len(details))
	for _, pr := range details {
		if excluded[pr.Author] || excludedRepo[pr.Repo] {
			continue
		}

		kept := pr
		if len(excluded) > 0 {
			kept.Reviews = nil
			kept.IterationCount = 0
			for _, rev := range pr.Reviews {
				if excluded[rev.Reviewer] {
					continue
				}
				kept.Reviews = append(kept.Reviews, rev)
				if !rev.SubmittedAt.IsZero() {
					kept.IterationCount++
				}
			}
			kept.FirstResponseAt = firstResponse(&kept)
		}
		out = append(out, kept)
	}
	return out
}

// firstResponse re-derives a PR's first non-author response from its
// surviving reviews, so stripped reviewers no longer influence the
// response-time samples. Nil when nobody else responded.
func firstResponse(pr *review.EnrichedPR) *time.Time {
	var first *time.Time
	for _, rev := range pr.Reviews {
		if rev.Reviewer == pr.Author || rev.FirstActivityAt.IsZero() {
			continue
		}
		if first == nil || rev.FirstActivityAt.Before(*first) {
			at := rev.FirstActivityAt
			first = &at
		}
	}
	return first
}

// handleCollect runs a collection for one month and stores the report.
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w, r, "handleCollect") {
		return
	}
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.ErrorContext(ctx, "[handleCollect] Failed to decode JSON", errorKey, sanitizeError(err))
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validateCollectRequest(&req); err != nil {
		s.logger.ErrorContext(ctx, "[handleCollect] Invalid request", errorKey, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Month == "" {
		req.Month = report.PreviousMonth(time.Now().UTC())
	}
	start, end, err := report.MonthWindow(req.Month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Get auth token - try Authorization header first, then fallback to env/GSM.
	token := s.extractToken(r)
	if token == "" {
		token = s.token(ctx)
		if token == "" {
			s.logger.WarnContext(ctx, "[handleCollect] No GitHub token available", "remote_addr", r.RemoteAddr)
			http.Error(w, "GitHub token required (set GITHUB_TOKEN env var or provide Authorization header)", http.StatusUnauthorized)
			return
		}
	}

	s.collectMu.Lock()
	defer s.collectMu.Unlock()

	doc, failed, err := s.collect(ctx, &req, token, start, end)
	if err != nil {
		s.logger.ErrorContext(ctx, "[handleCollect] Collection failed",
			"org", req.Org, "month", req.Month, errorKey, sanitizeError(err))
		if IsAccessError(err) {
			http.Error(w, "GitHub denied access to the requested repositories", http.StatusForbidden)
			return
		}
		http.Error(w, "Collection failed", http.StatusInternalServerError)
		return
	}

	s.invalidateReport(req.Month)

	s.logger.InfoContext(ctx, "[handleCollect] Collection completed",
		"org", req.Org, "month", req.Month, "prs", len(doc.Details), "failed", failed)

	s.writeJSON(ctx, w, CollectResponse{
		Month:     doc.Month,
		Org:       doc.Org,
		PRs:       len(doc.Details),
		Failed:    failed,
		Timestamp: time.Now().UTC(),
		Commit:    s.serverCommit,
	})
}

// collect fetches, enriches, aggregates, and stores one month.
func (s *Server) collect(ctx context.Context, req *CollectRequest, token string, start, end time.Time) (*report.Report, int, error) {
	client := github.NewClient(ctx, token)

	var prs []review.PullRequest
	for _, repo := range req.Repos {
		found, err := client.ListMergedPRs(ctx, req.Org, repo, start, end)
		if err != nil {
			return nil, 0, fmt.Errorf("list merged PRs for %s/%s: %w", req.Org, repo, err)
		}
		prs = append(prs, found...)
	}

	cfg := review.DefaultConfig()
	var details []review.EnrichedPR
	var failed int
	if len(prs) > 0 {
		result, err := review.AnalyzePRs(ctx, &review.AnalysisRequest{
			Fetcher:     &github.Fetcher{Client: client, Org: req.Org},
			Config:      cfg,
			PRs:         prs,
			Logger:      s.logger,
			Concurrency: collectConcurrency,
		})
		if err != nil {
			return nil, 0, err
		}
		details = result.Details
		failed = result.Failed
	}

	doc := report.Build(req.Org, req.Month, req.Repos, details, cfg)
	if err := doc.WriteFiles(s.reportsDir); err != nil {
		return nil, 0, err
	}
	return doc, failed, nil
}

// validateCollectRequest checks org and repo names before they reach the
// GitHub API (prevents query injection through the search expression).
func validateCollectRequest(req *CollectRequest) error {
	if req.Org == "" {
		return errors.New("missing required field: org")
	}
	if !orgNamePattern.MatchString(req.Org) {
		return errors.New("invalid org name")
	}
	if len(req.Repos) == 0 {
		return errors.New("missing required field: repos")
	}
	if len(req.Repos) > maxRepos {
		return fmt.Errorf("too many repos (max %d)", maxRepos)
	}
	for _, repo := range req.Repos {
		if !repoNamePattern.MatchString(repo) {
			return fmt.Errorf("invalid repo name: %q", repo)
		}
	}
	return nil
}

// loadReport returns a month's report from cache or disk.
func (s *Server) loadReport(ctx context.Context, month string) (*report.Report, error) {
	if doc, ok := s.cachedReport(month); ok {
		return doc, nil
	}

	doc, err := report.Load(s.reportsDir, month)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Loaded report from disk", "month", month, "prs", len(doc.Details))
	s.cacheReport(month, doc)
	return doc, nil
}

// respondReportError maps report load failures onto HTTP statuses.
func (s *Server) respondReportError(ctx context.Context, w http.ResponseWriter, month string, err error) {
	switch {
	case errors.Is(err, report.ErrNotFound):
		http.Error(w, "No report for month "+month, http.StatusNotFound)
	case strings.Contains(err.Error(), "invalid month"):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.ErrorContext(ctx, "Failed to load report", "month", month, errorKey, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSON encodes a response body, logging encode failures.
func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already sent; log for monitoring.
		s.logger.ErrorContext(ctx, "Error encoding response", errorKey, err)
	}
}

// extractToken extracts the GitHub token from the Authorization header.
func (*Server) extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	// Support "Bearer token" and "token token" formats.
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if strings.HasPrefix(auth, "token ") {
		return strings.TrimPrefix(auth, "token ")
	}

	return auth
}

// token retrieves a GitHub token from environment, the gh CLI, or Google
// Secret Manager. Results are cached in memory to avoid repeated API
// calls (performance and billing).
func (s *Server) token(ctx context.Context) string {
	// Check cache first (read lock)
	s.fallbackTokenMu.RLock()
	if s.fallbackToken != "" {
		token := s.fallbackToken
		s.fallbackTokenMu.RUnlock()
		return token
	}
	s.fallbackTokenMu.RUnlock()

	// Acquire write lock to fetch token
	s.fallbackTokenMu.Lock()
	defer s.fallbackTokenMu.Unlock()

	// Double-check after acquiring write lock
	if s.fallbackToken != "" {
		return s.fallbackToken
	}

	// Try GITHUB_TOKEN environment variable first (for local development)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		s.logger.InfoContext(ctx, "Using GITHUB_TOKEN from environment variable")
		s.fallbackToken = token
		return token
	}

	// Try gh auth token if gh is in PATH
	if ghPath, err := exec.LookPath("gh"); err == nil {
		s.logger.InfoContext(ctx, "Found gh CLI in PATH", "path", ghPath)
		cmd := exec.CommandContext(ctx, "gh", "auth", "token")
		output, err := cmd.Output()
		if err == nil {
			token := strings.TrimSpace(string(output))
			if token != "" {
				s.logger.InfoContext(ctx, "Using GITHUB_TOKEN from gh auth token")
				s.fallbackToken = token
				return token
			}
		} else {
			s.logger.WarnContext(ctx, "Failed to get token from gh auth token", errorKey, err)
		}
	}

	// Try Google Secret Manager for GITHUB_TOKEN
	token, err := gsm.Fetch(ctx, "GITHUB_TOKEN")
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to fetch GITHUB_TOKEN from GSM", errorKey, err)
		return ""
	}

	if token != "" {
		s.logger.InfoContext(ctx, "Using GITHUB_TOKEN from Google Secret Manager")
		s.fallbackToken = token
		return token
	}

	s.logger.WarnContext(ctx, "No fallback GitHub token found (tried GITHUB_TOKEN env, gh auth token, and GITHUB_TOKEN GSM)")
	return ""
}

func (s *Server) isOriginAllowed(origin string) bool {
	// Parse origin to extract protocol and host
	if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
		return false
	}

	protocolEnd := strings.Index(origin, "://")
	if protocolEnd == -1 {
		return false
	}
	protocol := origin[:protocolEnd]

	host := origin[protocolEnd+3:]
	// Remove port if present
	if colonIndex := strings.Index(host, ":"); colonIndex != -1 {
		host = host[:colonIndex]
	}
	// Remove path if present
	if slashIndex := strings.Index(host, "/"); slashIndex != -1 {
		host = host[:slashIndex]
	}

	for _, allowed := range s.allowedOrigins {
		// Exact match
		if allowed == origin {
			return true
		}

		// Wildcard subdomain match
		// Handle both "*.example.com" and "https://*.example.com" formats
		if strings.Contains(allowed, "*") {
			var wildcardDomain string
			var requiredProtocol string

			switch {
			case strings.HasPrefix(allowed, "http://"), strings.HasPrefix(allowed, "https://"):
				allowedProtocolEnd := strings.Index(allowed, "://")
				if allowedProtocolEnd == -1 {
					continue
				}
				requiredProtocol = allowed[:allowedProtocolEnd]
				wildcardPart := allowed[allowedProtocolEnd+3:]

				if !strings.HasPrefix(wildcardPart, "*.") {
					continue
				}
				wildcardDomain = wildcardPart[2:]

				// Protocol must match
				if protocol != requiredProtocol {
					continue
				}
			case strings.HasPrefix(allowed, "*."):
				wildcardDomain = allowed[2:]
			default:
				continue
			}

			// Matches: example.com, sub.example.com, deep.sub.example.com
			// Doesn't match: notexample.com, fakeexample.com
			if host == wildcardDomain || strings.HasSuffix(host, "."+wildcardDomain) {
				return true
			}
		}
	}
	return false
}

// handleHealth provides a simple health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "healthy"}); err != nil {
		s.logger.ErrorContext(ctx, "[handleHealth] Error encoding response", errorKey, err)
	}
}

// handleWebUI serves the embedded web UI.
func (s *Server) handleWebUI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	htmlContent, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		s.logger.ErrorContext(ctx, "[handleWebUI] Failed to read index.html", errorKey, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(htmlContent); err != nil {
		s.logger.ErrorContext(ctx, "[handleWebUI] Error writing response", errorKey, err)
	}
}

// handleStatic serves embedded static files.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Strip leading slash to match embed.FS structure
	path := strings.TrimPrefix(r.URL.Path, "/")

	content, err := staticFS.ReadFile(path)
	if err != nil {
		s.logger.WarnContext(ctx, "[handleStatic] File not found", "path", path, errorKey, err)
		http.NotFound(w, r)
		return
	}

	// Set content type based on file extension
	var contentType string
	switch {
	case strings.HasSuffix(path, ".png"):
		contentType = "image/png"
	case strings.HasSuffix(path, ".ico"):
		contentType = "image/x-icon"
	case strings.HasSuffix(path, ".css"):
		contentType = "text/css; charset=utf-8"
	case strings.HasSuffix(path, ".js"):
		contentType = "application/javascript; charset=utf-8"
	default:
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		s.logger.ErrorContext(ctx, "[handleStatic] Error writing response", errorKey, err)
	}
}
