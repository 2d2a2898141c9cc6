package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	rnotel "github.com/rcarraroia/renum/internal/adapter/otel"
	"github.com/rcarraroia/renum/internal/domain"
	"github.com/rcarraroia/renum/internal/domain/knowledgebase"
	"github.com/rcarraroia/renum/internal/domain/user"
	"github.com/rcarraroia/renum/internal/port/cache"
	"github.com/rcarraroia/renum/internal/port/database"
)

// KnowledgeBaseService manages knowledge bases, document ingestion, and
// cached full-text retrieval.
type KnowledgeBaseService struct {
	store        database.Store
	cache        cache.Cache
	chunkWords   int
	overlapWords int
	defaultTopK  int
	searchTTL    time.Duration
	metrics      *rnotel.Metrics
}

// NewKnowledgeBaseService creates a KnowledgeBaseService. c may be nil
// to disable search caching.
func NewKnowledgeBaseService(store database.Store, c cache.Cache, chunkWords, overlapWords, defaultTopK int, searchTTL time.Duration) *KnowledgeBaseService {
	if chunkWords <= 0 {
		chunkWords = knowledgebase.DefaultChunkWords
	}
	if overlapWords < 0 {
		overlapWords = knowledgebase.DefaultOverlapWords
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &KnowledgeBaseService{
		store:        store,
		cache:        c,
		chunkWords:   chunkWords,
		overlapWords: overlapWords,
		defaultTopK:  defaultTopK,
		searchTTL:    searchTTL,
	}
}

// SetMetrics attaches metric instruments. Metrics are optional.
func (s *KnowledgeBaseService) SetMetrics(m *rnotel.Metrics) {
	s.metrics = m
}

// List returns knowledge bases visible to the user.
func (s *KnowledgeBaseService) List(ctx context.Context, u *user.User) ([]knowledgebase.KnowledgeBase, error) {
	if u.Role == user.RoleAdmin {
		return s.store.ListKnowledgeBases(ctx, "")
	}
	return s.store.ListKnowledgeBases(ctx, u.ID)
}

// Get returns a knowledge base the user may see.
func (s *KnowledgeBaseService) Get(ctx context.Context, u *user.User, id string) (*knowledgebase.KnowledgeBase, error) {
	kb, err := s.store.GetKnowledgeBase(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != user.RoleAdmin && kb.OwnerID != u.ID {
		return nil, domain.ErrNotFound
	}
	return kb, nil
}

// Create validates and persists a new knowledge base.
func (s *KnowledgeBaseService) Create(ctx context.Context, u *user.User, req *knowledgebase.CreateRequest) (*knowledgebase.KnowledgeBase, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	kb := &knowledgebase.KnowledgeBase{
		ID:          uuid.NewString(),
		OwnerID:     u.ID,
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Status:      knowledgebase.StatusEmpty,
		Version:     1,
	}
	if err := s.store.CreateKnowledgeBase(ctx, kb); err != nil {
		return nil, fmt.Errorf("create knowledge base: %w", err)
	}
	return kb, nil
}

// Update applies partial updates to a knowledge base.
func (s *KnowledgeBaseService) Update(ctx context.Context, u *user.User, id string, req knowledgebase.UpdateRequest) (*knowledgebase.KnowledgeBase, error) {
	kb, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
		}
		kb.Name = *req.Name
	}
	if req.Description != nil {
		kb.Description = *req.Description
	}
	if req.Tags != nil {
		kb.Tags = req.Tags
	}

	if err := s.store.UpdateKnowledgeBase(ctx, kb); err != nil {
		return nil, err
	}
	return kb, nil
}

// Delete removes a knowledge base and its documents.
func (s *KnowledgeBaseService) Delete(ctx context.Context, u *user.User, id string) error {
	if _, err := s.Get(ctx, u, id); err != nil {
		return err
	}
	return s.store.DeleteKnowledgeBase(ctx, id)
}

// ListDocuments returns the documents of a knowledge base.
func (s *KnowledgeBaseService) ListDocuments(ctx context.Context, u *user.User, kbID string) ([]knowledgebase.Document, error) {
	if _, err := s.Get(ctx, u, kbID); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, kbID)
}

// AddDocument chunks the content and stores the document atomically with
// its chunks. The knowledge base version is bumped, which invalidates
// cached search results.
func (s *KnowledgeBaseService) AddDocument(ctx context.Context, u *user.User, kbID string, req *knowledgebase.AddDocumentRequest) (*knowledgebase.Document, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	kb, err := s.Get(ctx, u, kbID)
	if err != nil {
		return nil, err
	}

	doc := &knowledgebase.Document{
		ID:              uuid.NewString(),
		KnowledgeBaseID: kb.ID,
		Title:           req.Title,
		Source:          req.Source,
	}

	pieces := knowledgebase.SplitContent(req.Content, s.chunkWords, s.overlapWords)
	chunks := make([]knowledgebase.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = knowledgebase.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Position:   i,
			Content:    content,
		}
	}
	doc.ChunkCount = len(chunks)

	if err := s.store.CreateDocument(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	kb.DocumentCount++
	kb.ChunkCount += len(chunks)
	kb.Status = knowledgebase.StatusIndexed
	if err := s.store.UpdateKnowledgeBase(ctx, kb); err != nil {
		return nil, fmt.Errorf("update knowledge base: %w", err)
	}

	slog.Info("document indexed", "knowledge_base_id", kb.ID, "document_id", doc.ID, "chunks", len(chunks))
	return doc, nil
}

// DeleteDocument removes a document and its chunks.
func (s *KnowledgeBaseService) DeleteDocument(ctx context.Context, u *user.User, kbID, docID string) error {
	kb, err := s.Get(ctx, u, kbID)
	if err != nil {
		return err
	}
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if doc.KnowledgeBaseID != kb.ID {
		return domain.ErrNotFound
	}
	if err := s.store.DeleteDocument(ctx, docID); err != nil {
		return err
	}

	kb.DocumentCount--
	kb.ChunkCount -= doc.ChunkCount
	if kb.DocumentCount <= 0 {
		kb.DocumentCount = 0
		kb.ChunkCount = 0
		kb.Status = knowledgebase.StatusEmpty
	}
	return s.store.UpdateKnowledgeBase(ctx, kb)
}

// Search runs a ranked full-text query over a knowledge base. Results
// are cached per knowledge base version, so stale hits disappear as soon
// as content changes.
func (s *KnowledgeBaseService) Search(ctx context.Context, u *user.User, kbID string, req *knowledgebase.SearchRequest) ([]knowledgebase.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	kb, err := s.Get(ctx, u, kbID)
	if err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.defaultTopK
	}

	ctx, span := rnotel.StartSearchSpan(ctx, kb.ID, topK)
	defer span.End()
	if s.metrics != nil {
		s.metrics.SearchRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kb_id", kb.ID)))
	}

	key := fmt.Sprintf("kbsearch:%s:%d:%d:%s", kb.ID, kb.Version, topK, req.Query)
	if s.cache != nil {
		if data, ok, cerr := s.cache.Get(ctx, key); cerr == nil && ok {
			var results []knowledgebase.SearchResult
			if err := json.Unmarshal(data, &results); err == nil {
				if s.metrics != nil {
					s.metrics.SearchCacheHits.Add(ctx, 1, metric.WithAttributes(
						attribute.String("kb_id", kb.ID)))
				}
				return results, nil
			}
		}
	}

	results, err := s.store.SearchChunks(ctx, kb.ID, req.Query, topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	if s.cache != nil {
		if data, merr := json.Marshal(results); merr == nil {
			if cerr := s.cache.Set(ctx, key, data, s.searchTTL); cerr != nil {
				slog.Debug("failed to cache search results", "key", key, "error", cerr)
			}
		}
	}
	return results, nil
}
