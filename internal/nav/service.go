package nav

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/folio-service/folio_service/pkg/metrics"
)

// ErrSchemeNotFound is returned when no catalog entry scores above the
// match threshold. The resolver never guesses past the threshold.
var ErrSchemeNotFound = errors.New("no matching scheme found")

// DefaultMatchThreshold is the minimum similarity accepted when resolving a
// statement fund name against the catalog.
const DefaultMatchThreshold = 0.55

// Service resolves free-text fund names to scheme codes and serves NAV
// history. The scheme catalog is fetched once per process lifetime and is
// immutable afterwards; concurrent first uses collapse into a single fetch.
type Service struct {
	client    *Client
	logger    *zap.Logger
	threshold float64

	sf    singleflight.Group
	mu    sync.RWMutex
	index []indexEntry
}

type indexEntry struct {
	code       string
	normalized string
	tokens     map[string]struct{}
}

// NewService creates a resolver over the given data source client.
// A non-positive threshold selects the default.
func NewService(client *Client, threshold float64, logger *zap.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &Service{
		client:    client,
		logger:    logger,
		threshold: threshold,
	}
}

// ResolveSchemeCode finds the best-scoring catalog entry for a fund name.
func (s *Service) ResolveSchemeCode(ctx context.Context, fundName string) (string, error) {
	index, err := s.catalogIndex(ctx)
	if err != nil {
		metrics.NavLookupsTotal.WithLabelValues("catalog_error").Inc()
		return "", fmt.Errorf("scheme catalog unavailable: %w", err)
	}

	query := normalizeName(fundName)
	queryTokens := tokenize(query)
	if query == "" {
		metrics.NavLookupsTotal.WithLabelValues("unmatched").Inc()
		return "", ErrSchemeNotFound
	}

	bestScore := 0.0
	bestCode := ""
	bestName := ""
	for i := range index {
		score := similarity(query, queryTokens, &index[i])
		if score > bestScore {
			bestScore = score
			bestCode = index[i].code
			bestName = index[i].normalized
		}
	}

	if bestScore < s.threshold {
		s.logger.Warn("no scheme match above threshold",
			zap.String("fund_name", fundName),
			zap.Float64("best_score", bestScore),
		)
		metrics.NavLookupsTotal.WithLabelValues("unmatched").Inc()
		return "", ErrSchemeNotFound
	}

	s.logger.Debug("resolved fund name",
		zap.String("fund_name", fundName),
		zap.String("scheme_name", bestName),
		zap.Float64("score", bestScore),
	)
	metrics.NavLookupsTotal.WithLabelValues("matched").Inc()
	return bestCode, nil
}

// GetNavHistory returns the NAV series for a scheme, newest first. Fetch
// failures degrade to an empty series; callers treat that as "no external
// data", never as zero return.
func (s *Service) GetNavHistory(ctx context.Context, schemeCode string) ([]Point, error) {
	points, err := s.client.GetNavHistory(ctx, schemeCode)
	if err != nil {
		s.logger.Warn("NAV history unavailable",
			zap.String("scheme_code", schemeCode),
			zap.Error(err),
		)
		return nil, nil
	}
	return points, nil
}

// GetLatestNav returns the most recent NAV for a scheme, or false when the
// series is empty.
func (s *Service) GetLatestNav(ctx context.Context, schemeCode string) (float64, bool) {
	history, err := s.GetNavHistory(ctx, schemeCode)
	if err != nil || len(history) == 0 {
		return 0, false
	}
	return history[0].Value, true
}

// catalogIndex lazily builds the fuzzy index, single-flight guarded so that
// racing first calls cause exactly one catalog fetch.
func (s *Service) catalogIndex(ctx context.Context) ([]indexEntry, error) {
	s.mu.RLock()
	if s.index != nil {
		index := s.index
		s.mu.RUnlock()
		return index, nil
	}
	s.mu.RUnlock()

	_, err, _ := s.sf.Do("catalog", func() (interface{}, error) {
		s.mu.RLock()
		loaded := s.index != nil
		s.mu.RUnlock()
		if loaded {
			return nil, nil
		}

		schemes, err := s.client.GetSchemeCatalog(ctx)
		if err != nil {
			return nil, err
		}

		index := make([]indexEntry, 0, len(schemes))
		for _, scheme := range schemes {
			normalized := normalizeName(scheme.SchemeName)
			if normalized == "" {
				continue
			}
			index = append(index, indexEntry{
				code:       scheme.SchemeCode,
				normalized: normalized,
				tokens:     tokenize(normalized),
			})
		}

		s.mu.Lock()
		s.index = index
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index, nil
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = nonAlnumRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

func tokenize(normalized string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, t := range strings.Fields(normalized) {
		tokens[t] = struct{}{}
	}
	return tokens
}

// similarity blends token overlap with edit distance: overlap dominates so
// that word-order and plan-variant noise ("Direct Plan - Growth") does not
// sink an otherwise obvious match, while the edit-distance term breaks ties
// between catalog entries sharing the same tokens.
func similarity(query string, queryTokens map[string]struct{}, entry *indexEntry) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	overlap := 0
	for t := range queryTokens {
		if _, ok := entry.tokens[t]; ok {
			overlap++
		}
	}
	tokenScore := float64(overlap) / float64(len(queryTokens))

	maxLen := len(query)
	if len(entry.normalized) > maxLen {
		maxLen = len(entry.normalized)
	}
	editScore := 0.0
	if maxLen > 0 {
		dist := levenshtein.ComputeDistance(query, entry.normalized)
		editScore = 1 - float64(dist)/float64(maxLen)
		if editScore < 0 {
			editScore = 0
		}
	}

	return 0.7*tokenScore + 0.3*editScore
}
