package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rcarraroia/renum/internal/domain/knowledgebase"
)

const kbColumns = `id, owner_id, name, description, tags, status, document_count, chunk_count, version, created_at, updated_at`

func (s *Store) ListKnowledgeBases(ctx context.Context, ownerID string) ([]knowledgebase.KnowledgeBase, error) {
	query := `SELECT ` + kbColumns + ` FROM renum_knowledge_bases`
	args := []any{}
	if ownerID != "" {
		query += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list knowledge bases: %w", err)
	}
	defer rows.Close()

	var kbs []knowledgebase.KnowledgeBase
	for rows.Next() {
		kb, err := scanKnowledgeBase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge base: %w", err)
		}
		kbs = append(kbs, *kb)
	}
	return kbs, rows.Err()
}

func (s *Store) GetKnowledgeBase(ctx context.Context, id string) (*knowledgebase.KnowledgeBase, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+kbColumns+` FROM renum_knowledge_bases WHERE id = $1`, id)
	kb, err := scanKnowledgeBase(row)
	if err != nil {
		return nil, notFoundWrap(err, "get knowledge base %s", id)
	}
	return kb, nil
}

func (s *Store) CreateKnowledgeBase(ctx context.Context, kb *knowledgebase.KnowledgeBase) error {
	kb.CreatedAt = time.Now().UTC()
	kb.UpdatedAt = kb.CreatedAt
	_, err := s.pool.Exec(ctx, `
		INSERT INTO renum_knowledge_bases (`+kbColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		kb.ID, kb.OwnerID, kb.Name, kb.Description, kb.Tags, kb.Status,
		kb.DocumentCount, kb.ChunkCount, kb.Version, kb.CreatedAt, kb.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create knowledge base %s: %w", kb.Name, err)
	}
	return nil
}

// UpdateKnowledgeBase writes the knowledge base back and bumps its version.
// The bump also invalidates cached search results keyed on the version.
func (s *Store) UpdateKnowledgeBase(ctx context.Context, kb *knowledgebase.KnowledgeBase) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE renum_knowledge_bases
		SET name = $2, description = $3, tags = $4, status = $5,
		    document_count = $6, chunk_count = $7, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $8
		RETURNING version, updated_at`,
		kb.ID, kb.Name, kb.Description, kb.Tags, kb.Status,
		kb.DocumentCount, kb.ChunkCount, kb.Version).
		Scan(&kb.Version, &kb.UpdatedAt)
	if err != nil {
		return notFoundWrap(err, "update knowledge base %s", kb.ID)
	}
	return nil
}

func (s *Store) DeleteKnowledgeBase(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM renum_knowledge_bases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete knowledge base %s: %w", id, err)
	}
	return execExpectOne(tag, "delete knowledge base %s", id)
}

func scanKnowledgeBase(row scannable) (*knowledgebase.KnowledgeBase, error) {
	var kb knowledgebase.KnowledgeBase
	err := row.Scan(&kb.ID, &kb.OwnerID, &kb.Name, &kb.Description, &kb.Tags, &kb.Status,
		&kb.DocumentCount, &kb.ChunkCount, &kb.Version, &kb.CreatedAt, &kb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &kb, nil
}

func (s *Store) ListDocuments(ctx context.Context, kbID string) ([]knowledgebase.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, knowledge_base_id, title, source, chunk_count, created_at
		FROM renum_documents WHERE knowledge_base_id = $1 ORDER BY created_at`, kbID)
	if err != nil {
		return nil, fmt.Errorf("list documents for kb %s: %w", kbID, err)
	}
	defer rows.Close()

	var docs []knowledgebase.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *Store) GetDocument(ctx context.Context, id string) (*knowledgebase.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, knowledge_base_id, title, source, chunk_count, created_at
		FROM renum_documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if err != nil {
		return nil, notFoundWrap(err, "get document %s", id)
	}
	return d, nil
}

// CreateDocument inserts the document and all of its chunks in one
// transaction so a partially indexed document is never visible.
func (s *Store) CreateDocument(ctx context.Context, doc *knowledgebase.Document, chunks []knowledgebase.Chunk) error {
	doc.CreatedAt = time.Now().UTC()
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("create document: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO renum_documents (id, knowledge_base_id, title, source, chunk_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.KnowledgeBaseID, doc.Title, nullString(doc.Source), doc.ChunkCount, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("create document %s: %w", doc.Title, err)
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO renum_chunks (id, document_id, position, content)
			VALUES ($1, $2, $3, $4)`,
			c.ID, c.DocumentID, c.Position, c.Content)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("create document %s: insert chunks: %w", doc.Title, err)
	}

	return tx.Commit(ctx)
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM renum_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return execExpectOne(tag, "delete document %s", id)
}

// SearchChunks ranks chunks of a knowledge base against a web-style search
// query using PostgreSQL full text search.
func (s *Store) SearchChunks(ctx context.Context, kbID, query string, topK int) ([]knowledgebase.SearchResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.title, c.id, c.position, c.content,
		       ts_rank(c.tsv, websearch_to_tsquery('english', $2)) AS rank
		FROM renum_chunks c
		JOIN renum_documents d ON d.id = c.document_id
		WHERE d.knowledge_base_id = $1
		  AND c.tsv @@ websearch_to_tsquery('english', $2)
		ORDER BY rank DESC, c.position
		LIMIT $3`, kbID, query, topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks in kb %s: %w", kbID, err)
	}
	defer rows.Close()

	var results []knowledgebase.SearchResult
	for rows.Next() {
		var r knowledgebase.SearchResult
		err := rows.Scan(&r.DocumentID, &r.DocumentTitle, &r.ChunkID, &r.Position, &r.Content, &r.Rank)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanDocument(row scannable) (*knowledgebase.Document, error) {
	var (
		d      knowledgebase.Document
		source sql.NullString
	)
	err := row.Scan(&d.ID, &d.KnowledgeBaseID, &d.Title, &source, &d.ChunkCount, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Source = stringOrEmpty(source)
	return &d, nil
}
