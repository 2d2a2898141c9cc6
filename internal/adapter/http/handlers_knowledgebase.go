package http

import (
	"net/http"

	"github.com/rcarraroia/renum/internal/domain/knowledgebase"
	"github.com/rcarraroia/renum/internal/middleware"
)

// ListKnowledgeBases handles GET /api/v1/knowledge-bases.
func (h *Handlers) ListKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	kbs, err := h.KnowledgeBases.List(r.Context(), u)
	if err != nil {
		writeDomainError(w, err, "knowledge bases not found")
		return
	}
	if kbs == nil {
		kbs = []knowledgebase.KnowledgeBase{}
	}
	writeJSON(w, http.StatusOK, kbs)
}

// CreateKnowledgeBase handles POST /api/v1/knowledge-bases.
func (h *Handlers) CreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[knowledgebase.CreateRequest](w, r)
	if !ok {
		return
	}
	kb, err := h.KnowledgeBases.Create(r.Context(), u, &req)
	if err != nil {
		writeDomainError(w, err, "knowledge base not found")
		return
	}
	writeJSON(w, http.StatusCreated, kb)
}

// GetKnowledgeBase handles GET /api/v1/knowledge-bases/{id}.
func (h *Handlers) GetKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	kb, err := h.KnowledgeBases.Get(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "knowledge base not found")
		return
	}
	writeJSON(w, http.StatusOK, kb)
}

// UpdateKnowledgeBase handles PUT /api/v1/knowledge-bases/{id}.
func (h *Handlers) UpdateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[knowledgebase.UpdateRequest](w, r)
	if !ok {
		return
	}
	kb, err := h.KnowledgeBases.Update(r.Context(), u, urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "knowledge base not found")
		return
	}
	writeJSON(w, http.StatusOK, kb)
}

// DeleteKnowledgeBase handles DELETE /api/v1/knowledge-bases/{id}.
func (h *Handlers) DeleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if err := h.KnowledgeBases.Delete(r.Context(), u, urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "knowledge base not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListDocuments handles GET /api/v1/knowledge-bases/{id}/documents.
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	docs, err := h.KnowledgeBases.ListDocuments(r.Context(), u, urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "knowledge base not found")
		return
	}
	if docs == nil {
		docs = []knowledgebase.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// AddDocument handles POST /api/v1/knowledge-bases/{id}/documents.
func (h *Handlers) AddDocument(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[knowledgebase.AddDocumentRequest](w, r)
	if !ok {
		return
	}
	doc, err := h.KnowledgeBases.AddDocument(r.Context(), u, urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, err, "knowledge base not found")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// DeleteDocument handles DELETE /api/v1/knowledge-bases/{id}/documents/{docId}.
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	if err := h.KnowledgeBases.DeleteDocument(r.Context(), u, urlParam(r, "id"), urlParam(r, "docId")); err != nil {
		writeDomainError(w, err, "document not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchKnowledgeBase handles POST /api/v1/knowledge-bases/{id}/search.
func (h *Handlers) SearchKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	u := middleware.UserFromContext(r.Context())
	req, ok := readJSON[knowledgebase.SearchRequest](w, r)
	if !ok {
		return
	}
	results, err := h.KnowledgeBases.Search(r.Context(), u, urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, err, "knowledge base not found")
		return
	}
	if results == nil {
		results = []knowledgebase.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
