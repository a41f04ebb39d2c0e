package forcecurve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keebstack/switchbook/internal/apperr"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opLookup = "forcecurve.lookup"

	memoryTTL     = time.Hour
	recheckAfter  = 7 * 24 * time.Hour
	probeTimeout  = 5 * time.Second
	cleanupPeriod = 10 * time.Minute
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingBaseURL  = errors.New("base url is required")
	errMissingName     = errors.New("switch name is required")
	noOpLogger         = zap.NewNop()
)

// Result is the outcome of a force-curve lookup.
type Result struct {
	Found bool   `json:"found"`
	URL   string `json:"url,omitempty"`
}

// ServiceConfig describes the dependencies for the force-curve service.
type ServiceConfig struct {
	Database *gorm.DB
	// BaseURL points at the raw content root of the measurement repository.
	BaseURL    string
	HTTPClient *http.Client
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service resolves published force-curve measurements for a switch. Lookups
// go through an in-process TTL cache, then a persistent cache table, and only
// then probe the remote repository with HEAD requests.
type Service struct {
	db      *gorm.DB
	baseURL string
	client  *http.Client
	memory  *gocache.Cache
	clock   func() time.Time
	logger  *zap.Logger
}

// NewService constructs the force-curve service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, apperr.Internal(opLookup, "missing_database", errMissingDatabase)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, apperr.Internal(opLookup, "missing_base_url", errMissingBaseURL)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:      cfg.Database,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		memory:  gocache.New(memoryTTL, cleanupPeriod),
		clock:   clock,
		logger:  logger,
	}, nil
}

// Lookup resolves the force-curve URL for a switch, if one is published.
// Negative outcomes are cached too and rechecked after a week.
func (s *Service) Lookup(ctx context.Context, name, manufacturer string) (Result, error) {
	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return Result{}, apperr.Validation(opLookup, "missing_name", errMissingName)
	}
	key := cacheKey(trimmedName, manufacturer)

	if cached, ok := s.memory.Get(key); ok {
		return cached.(Result), nil
	}

	var entry CacheEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error
	if err == nil && s.clock().Sub(entry.CheckedAt) < recheckAfter {
		result := Result{Found: entry.Found, URL: entry.URL}
		s.memory.Set(key, result, gocache.DefaultExpiration)
		return result, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError("cache_lookup_failed", err)
		return Result{}, apperr.Internal(opLookup, "cache_lookup_failed", err)
	}

	result := s.probe(ctx, trimmedName, manufacturer)

	entry = CacheEntry{Key: key, Found: result.Found, URL: result.URL, CheckedAt: s.clock()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"found", "url", "checked_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		s.logError("cache_write_failed", err)
	}
	s.memory.Set(key, result, gocache.DefaultExpiration)
	return result, nil
}

// probe issues HEAD requests against the candidate paths the measurement
// repository uses and returns the first hit.
func (s *Service) probe(ctx context.Context, name, manufacturer string) Result {
	for _, candidate := range candidatePaths(name, manufacturer) {
		target := s.baseURL + "/" + candidate
		request, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
		if err != nil {
			s.logError("probe_request_failed", err)
			continue
		}
		response, err := s.client.Do(request)
		if err != nil {
			s.logError("probe_failed", err)
			continue
		}
		response.Body.Close()
		if response.StatusCode == http.StatusOK {
			return Result{Found: true, URL: target}
		}
	}
	return Result{}
}

// candidatePaths lists the folder layouts observed in the measurement
// repository, most specific first.
func candidatePaths(name, manufacturer string) []string {
	candidates := make([]string, 0, 2)
	if trimmed := strings.TrimSpace(manufacturer); trimmed != "" {
		full := trimmed + " " + name
		candidates = append(candidates, curvePath(full))
	}
	candidates = append(candidates, curvePath(name))
	return candidates
}

func curvePath(label string) string {
	escaped := url.PathEscape(label)
	return fmt.Sprintf("%s/%s.csv", escaped, escaped)
}

func cacheKey(name, manufacturer string) string {
	return strings.ToLower(strings.TrimSpace(manufacturer)) + "|" + strings.ToLower(name)
}

func (s *Service) logError(reason string, err error) {
	s.logger.Warn("force curve lookup problem",
		zap.String("operation", opLookup),
		zap.String("reason", reason),
		zap.Error(err))
}
