package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/ansera/internal/core/domain"
	"github.com/custodia-labs/ansera/internal/core/ports/driven"
	"github.com/custodia-labs/ansera/internal/core/ports/driving"
	"github.com/custodia-labs/ansera/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

const defaultTopK = 5

// legOutcome carries one sub-index's hits across the fan-in.
type legOutcome struct {
	origin  domain.RetrievalOrigin
	lexical []driven.LexicalHit
	vector  []driven.VectorHit
	err     error
}

// RetrievalService runs both index legs in parallel and fuses their
// rankings into one score-ordered list. Each leg's raw scores live on
// a different scale (unbounded TF-IDF vs cosine similarity), so both
// are max-normalised to [0,1] before the weighted combination.
type RetrievalService struct {
	store    driven.SnippetStore
	lexical  driven.LexicalIndex
	vector   driven.VectorIndex
	embedder driven.EmbeddingService
	settings domain.RetrievalSettings
}

// NewRetrievalService creates a hybrid retriever. The embedder is
// optional (can be nil); without it the vector leg is unavailable and
// every result is lexical-only and marked partial.
func NewRetrievalService(
	store driven.SnippetStore,
	lexical driven.LexicalIndex,
	vector driven.VectorIndex,
	embedder driven.EmbeddingService,
	settings domain.RetrievalSettings,
) *RetrievalService {
	return &RetrievalService{
		store:    store,
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		settings: settings.Normalised(),
	}
}

// Retrieve runs both legs under a shared deadline and fuses whatever
// completed. One failed leg degrades to the survivor; both failing is
// the only retrieval error.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	logger.Section("Hybrid Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return domain.RetrievalResult{Query: query}, nil
	}
	if k <= 0 {
		k = defaultTopK
	}

	overfetch := s.settings.Overfetch
	if overfetch <= 0 {
		overfetch = domain.DefaultAppSettings().Retrieval.Overfetch
	}
	fetchK := k * overfetch

	timeoutMS := s.settings.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = domain.DefaultAppSettings().Retrieval.TimeoutMS
	}
	timeout := time.Duration(timeoutMS) * time.Millisecond
	legCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Debug("Query: %q, k=%d, fetchK=%d, timeout=%s", query, k, fetchK, timeout)

	// Buffered so a leg finishing after the deadline never leaks.
	outcomes := make(chan legOutcome, 2)
	go func() {
		hits, err := s.lexicalLeg(legCtx, query, fetchK)
		outcomes <- legOutcome{origin: domain.OriginLexical, lexical: hits, err: err}
	}()
	go func() {
		hits, err := s.vectorLeg(legCtx, query, fetchK)
		outcomes <- legOutcome{origin: domain.OriginVector, vector: hits, err: err}
	}()

	var lexHits []driven.LexicalHit
	var vecHits []driven.VectorHit
	var lexErr, vecErr error
	lexDone, vecDone := false, false
	partial := false

collect:
	for received := 0; received < 2; received++ {
		select {
		case out := <-outcomes:
			switch out.origin {
			case domain.OriginLexical:
				lexHits, lexErr, lexDone = out.lexical, out.err, true
			case domain.OriginVector:
				vecHits, vecErr, vecDone = out.vector, out.err, true
			}
		case <-legCtx.Done():
			partial = true
			logger.Warn("Retrieval deadline hit after %s, fusing completed legs only", timeout)
			break collect
		}
	}
	if !lexDone {
		lexErr = legCtx.Err()
	}
	if !vecDone {
		vecErr = legCtx.Err()
	}

	if lexErr != nil && vecErr != nil {
		logger.Warn("Both retrieval legs failed: lexical=%v, vector=%v", lexErr, vecErr)
		return domain.RetrievalResult{Query: query},
			fmt.Errorf("%w: lexical=%v, vector=%v", domain.ErrIndexUnavailable, lexErr, vecErr)
	}
	if lexErr != nil {
		logger.Warn("Lexical leg failed, using vector results only: %v", lexErr)
		partial = true
	}
	if vecErr != nil {
		logger.Warn("Vector leg failed, using lexical results only: %v", vecErr)
		partial = true
	}

	ranked := s.fuse(lexHits, vecHits)
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	logger.Info("Fused %d lexical + %d vector hits into %d results (partial=%t)",
		len(lexHits), len(vecHits), len(ranked), partial)

	return domain.RetrievalResult{Query: query, Ranked: ranked, Partial: partial}, nil
}

// Hydrate resolves ranked ids against the store, preserving order.
// Ids deleted since retrieval are skipped; any other store failure
// aborts, because evidence without text is unusable.
func (s *RetrievalService) Hydrate(ctx context.Context, result domain.RetrievalResult) ([]domain.RetrievedSnippet, error) {
	hydrated := make([]domain.RetrievedSnippet, 0, len(result.Ranked))
	for _, ranked := range result.Ranked {
		snippet, err := s.store.Get(ctx, ranked.SnippetID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("Snippet %s vanished between retrieval and hydration, skipping", ranked.SnippetID)
				continue
			}
			return nil, fmt.Errorf("get snippet %s: %w", ranked.SnippetID, err)
		}
		hydrated = append(hydrated, domain.RetrievedSnippet{Ranked: ranked, Snippet: snippet})
	}
	return hydrated, nil
}

func (s *RetrievalService) lexicalLeg(ctx context.Context, query string, k int) ([]driven.LexicalHit, error) {
	if s.lexical == nil {
		return nil, errors.New("lexical index unavailable")
	}
	hits, err := s.lexical.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	logger.Debug("Lexical leg: %d hits", len(hits))
	return hits, nil
}

func (s *RetrievalService) vectorLeg(ctx context.Context, query string, k int) ([]driven.VectorHit, error) {
	if s.vector == nil {
		return nil, errors.New("vector index unavailable")
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.vector.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector leg: %d hits", len(hits))
	return hits, nil
}

// fuse merges both legs: per-leg max-normalisation to [0,1], weighted
// sum, dedup by id, fused score descending with id-ascending ties, and
// the minimum-score floor applied last. A snippet absent from one leg
// simply contributes zero from it.
func (s *RetrievalService) fuse(lexHits []driven.LexicalHit, vecHits []driven.VectorHit) []domain.RankedSnippet {
	entries := make(map[string]*domain.RankedSnippet, len(lexHits)+len(vecHits))

	var lexMax float64
	for _, hit := range lexHits {
		if hit.Score > lexMax {
			lexMax = hit.Score
		}
	}
	for i, hit := range lexHits {
		norm := 0.0
		if lexMax > 0 {
			norm = hit.Score / lexMax
		}
		entries[hit.SnippetID] = &domain.RankedSnippet{
			SnippetID:   hit.SnippetID,
			FusedScore:  s.settings.LexicalWeight * norm,
			LexicalRank: i + 1,
			Origin:      domain.OriginLexical,
		}
	}

	// Negative cosine similarity means "actively dissimilar"; it
	// contributes nothing rather than a negative fused score.
	var vecMax float64
	for _, hit := range vecHits {
		if hit.Similarity > vecMax {
			vecMax = hit.Similarity
		}
	}
	for i, hit := range vecHits {
		sim := hit.Similarity
		if sim < 0 {
			sim = 0
		}
		norm := 0.0
		if vecMax > 0 {
			norm = sim / vecMax
		}
		if entry, ok := entries[hit.SnippetID]; ok {
			entry.FusedScore += s.settings.VectorWeight * norm
			entry.VectorRank = i + 1
			entry.Origin = domain.OriginBoth
			continue
		}
		entries[hit.SnippetID] = &domain.RankedSnippet{
			SnippetID:  hit.SnippetID,
			FusedScore: s.settings.VectorWeight * norm,
			VectorRank: i + 1,
			Origin:     domain.OriginVector,
		}
	}

	ranked := make([]domain.RankedSnippet, 0, len(entries))
	for _, entry := range entries {
		if entry.FusedScore < s.settings.MinScore {
			continue
		}
		ranked = append(ranked, *entry)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].FusedScore != ranked[j].FusedScore {
			return ranked[i].FusedScore > ranked[j].FusedScore
		}
		return ranked[i].SnippetID < ranked[j].SnippetID
	})

	return ranked
}
