// Package retrieval implements the hybrid retrieval pipeline: parse,
// parallel vector+keyword retrieval, score fusion, cross-encoder rerank,
// dedup, access filtering, file aggregation.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain/search/mode"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain/search/query"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/metrics"
)

// Config holds the pipeline tuning knobs.
type Config struct {
	HybridAlpha      float64       // share of the vector score in the fused score
	RerankWeight     float64       // share of the cross-encoder score in the final blend
	Overfetch        int           // per-leg candidate over-fetch factor
	MaxChunksPerFile int           // chunk cap per returned file
	StageTimeout     time.Duration // budget per retrieval/rerank stage
}

// Service orchestrates the retrieval pipeline.
type Service struct {
	embedder Embedder
	vectors  VectorStore
	texts    TextIndex
	encoder  CrossEncoder // nil disables the rerank stage
	access   AccessResolver
	cfg      Config
	logger   *zap.Logger
}

// New creates the retrieval service. encoder may be nil.
func New(
	embedder Embedder,
	vectors VectorStore,
	texts TextIndex,
	encoder CrossEncoder,
	access AccessResolver,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.HybridAlpha <= 0 || cfg.HybridAlpha > 1 {
		cfg.HybridAlpha = 0.6
	}
	if cfg.RerankWeight <= 0 || cfg.RerankWeight > 1 {
		cfg.RerankWeight = 0.7
	}
	if cfg.Overfetch <= 0 {
		cfg.Overfetch = 3
	}
	if cfg.MaxChunksPerFile <= 0 {
		cfg.MaxChunksPerFile = 5
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		embedder: embedder,
		vectors:  vectors,
		texts:    texts,
		encoder:  encoder,
		access:   access,
		cfg:      cfg,
		logger:   logger,
	}
}

// Request is one retrieval call.
type Request struct {
	Query    string
	UserID   string
	K        int
	MinScore float64
	Mode     mode.Mode
}

// Result is the retrieval envelope.
type Result struct {
	Files     []domain.FileResult
	Truncated bool
	Trace     []Span
}

// Search runs the full pipeline for one request.
//
// The access policy is resolved up front and applied to every candidate
// before aggregation; no path returns content the policy does not allow.
// One retrieval leg failing degrades the request, both failing fails it.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	trace := &Trace{}

	start := time.Now()
	q, err := query.New(req.Query, req.Mode, req.K, req.MinScore)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(string(req.Mode), "invalid").Inc()
		return Result{}, err
	}
	trace.Record(StageParse, start, 0, len(q.Filters()), false, "")

	start = time.Now()
	policy, err := s.access.Resolve(ctx, req.UserID)
	if err != nil {
		// Unverifiable access means no access, not full access.
		metrics.RetrievalRequestsTotal.WithLabelValues(string(q.Mode()), "error").Inc()
		return Result{}, err
	}
	trace.Record(StageResolve, start, 0, 0, false, "")

	if policy.IsEmpty() {
		metrics.RetrievalRequestsTotal.WithLabelValues(string(q.Mode()), "no_access").Inc()
		return Result{Trace: trace.Spans()},
			fmt.Errorf("user %q has no readable files: %w", req.UserID, domain.ErrNoAccessibleResults)
	}

	vecCands, kwCands, err := s.retrieve(ctx, &q, trace)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(string(q.Mode()), "error").Inc()
		return Result{Trace: trace.Spans()}, err
	}

	start = time.Now()
	combined := combineCandidates(vecCands, kwCands, s.alpha(q.Mode()))
	trace.Record(StageCombine, start, len(vecCands)+len(kwCands), len(combined), false, "")

	if s.encoder != nil && len(combined) > 0 {
		start = time.Now()
		stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
		skipped := s.rerankStage(stageCtx, q.Text(), combined, q.K())
		cancel()
		note := ""
		if skipped {
			note = "cross-encoder skipped"
		}
		trace.Record(StageRerank, start, len(combined), len(combined), skipped, note)
	}

	start = time.Now()
	deduped := deduplicate(combined)
	kept := cutBelow(deduped, q.MinScore())
	trace.Record(StageDedup, start, len(combined), len(kept), false, "")

	// Access filtering runs under the parent context and always completes.
	start = time.Now()
	authorized := filterByAccess(kept, policy)
	trace.Record(StageFilter, start, len(kept), len(authorized), false, "")

	if len(authorized) == 0 && len(kept) > 0 {
		metrics.RetrievalRequestsTotal.WithLabelValues(string(q.Mode()), "no_access").Inc()
		return Result{Trace: trace.Spans()},
			fmt.Errorf("%d matching chunks, none readable by user %q: %w",
				len(kept), req.UserID, domain.ErrNoAccessibleResults)
	}

	start = time.Now()
	files, truncated := aggregateFiles(authorized, q.K(), s.cfg.MaxChunksPerFile)
	trace.Record(StageAggregate, start, len(authorized), len(files), false, "")

	outcome := "success"
	if trace.Degraded() {
		outcome = "degraded"
	}
	metrics.RetrievalRequestsTotal.WithLabelValues(string(q.Mode()), outcome).Inc()

	return Result{Files: files, Truncated: truncated, Trace: trace.Spans()}, nil
}

// retrieve fans out the enabled retrieval legs in parallel. Each leg's
// error is captured, not propagated: a single failing leg degrades the
// request, and only all enabled legs failing is a hard error.
func (s *Service) retrieve(ctx context.Context, q *query.Query, trace *Trace) ([]domain.Candidate, []domain.Candidate, error) {
	start := time.Now()
	overK := q.K() * s.cfg.Overfetch

	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	defer cancel()

	var (
		vecCands, kwCands []domain.Candidate
		vecErr, kwErr     error
	)

	g, gctx := errgroup.WithContext(stageCtx)
	if q.Mode().UsesVector() {
		g.Go(func() error {
			vecCands, vecErr = s.vectorLeg(gctx, q, overK)
			return nil
		})
	}
	if q.Mode().UsesKeyword() {
		g.Go(func() error {
			kwCands, kwErr = s.keywordLeg(gctx, q, overK)
			return nil
		})
	}
	_ = g.Wait()

	vecDown := q.Mode().UsesVector() && vecErr != nil
	kwDown := q.Mode().UsesKeyword() && kwErr != nil

	if vecDown && q.Mode() == mode.Vector {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, vecErr)
	}
	if kwDown && q.Mode() == mode.Keyword {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, kwErr)
	}
	if vecDown && kwDown {
		return nil, nil, fmt.Errorf("%w: vector: %w; keyword: %v",
			domain.ErrRetrievalFailed, vecErr, kwErr)
	}

	note := ""
	if vecDown {
		note = "vector leg failed"
		s.logger.Warn("Vector leg failed, continuing with keyword results", zap.Error(vecErr))
		vecCands = nil
	}
	if kwDown {
		note = "keyword leg failed"
		s.logger.Warn("Keyword leg failed, continuing with vector results", zap.Error(kwErr))
		kwCands = nil
	}

	trace.Record(StageRetrieve, start, 0, len(vecCands)+len(kwCands), vecDown || kwDown, note)
	return vecCands, kwCands, nil
}

// alpha returns the vector share of the fused score for the given mode.
// Single-leg modes collapse the blend onto the active leg.
func (s *Service) alpha(m mode.Mode) float64 {
	switch m {
	case mode.Vector:
		return 1
	case mode.Keyword:
		return 0
	default:
		return s.cfg.HybridAlpha
	}
}

// cutBelow drops candidates under the caller's score floor. A zero floor
// keeps everything.
func cutBelow(cands []domain.Candidate, minScore float64) []domain.Candidate {
	if minScore <= 0 {
		return cands
	}
	out := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.FinalScore() >= minScore {
			out = append(out, c)
		}
	}
	return out
}
