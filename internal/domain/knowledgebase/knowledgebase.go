// Package knowledgebase defines knowledge bases, documents, and retrieval types.
package knowledgebase

import (
	"errors"
	"time"
)

// Status represents the indexing status of a knowledge base.
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusIndexed  Status = "indexed"
	StatusIndexing Status = "indexing"
)

// KnowledgeBase represents a collection of documents searchable by agents.
type KnowledgeBase struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Tags          []string  `json:"tags"`
	Status        Status    `json:"status"`
	DocumentCount int       `json:"document_count"`
	ChunkCount    int       `json:"chunk_count"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateRequest holds the input for creating a knowledge base.
type CreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Validate checks that a CreateRequest is well-formed.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if len(r.Name) > 128 {
		return errors.New("name too long (max 128 chars)")
	}
	return nil
}

// UpdateRequest holds the input for updating a knowledge base.
// Tags is a full replace when non-nil.
type UpdateRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Document represents an uploaded document within a knowledge base.
type Document struct {
	ID              string    `json:"id"`
	KnowledgeBaseID string    `json:"knowledge_base_id"`
	Title           string    `json:"title"`
	Source          string    `json:"source,omitempty"`
	ChunkCount      int       `json:"chunk_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// AddDocumentRequest holds the input for uploading a document.
type AddDocumentRequest struct {
	Title   string `json:"title"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content"`
}

// Validate checks that an AddDocumentRequest is well-formed.
func (r *AddDocumentRequest) Validate() error {
	if r.Title == "" {
		return errors.New("title is required")
	}
	if r.Content == "" {
		return errors.New("content is required")
	}
	if len(r.Content) > 4<<20 {
		return errors.New("content too large (max 4 MiB)")
	}
	return nil
}

// Chunk is a contiguous span of a document stored for retrieval.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Position   int    `json:"position"`
	Content    string `json:"content"`
}

// SearchRequest holds the input for a retrieval query.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate checks that a SearchRequest is well-formed.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return errors.New("query is required")
	}
	if len(r.Query) > 2000 {
		return errors.New("query too long (max 2000 chars)")
	}
	if r.TopK < 0 || r.TopK > 50 {
		return errors.New("top_k must be between 0 and 50")
	}
	return nil
}

// SearchResult is a single ranked retrieval hit.
type SearchResult struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkID       string  `json:"chunk_id"`
	Position      int     `json:"position"`
	Content       string  `json:"content"`
	Rank          float64 `json:"rank"`
}
