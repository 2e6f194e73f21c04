package handler

import (
	"net/http"
	"strconv"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/service"
)

type SearchHandler struct {
	searchService *service.SearchService
}

func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search обрабатывает GET /v1/search?query=...&page=...&limit=...
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()

	var page, limit int
	if pageStr := q.Get("page"); pageStr != "" {
		page, _ = strconv.Atoi(pageStr)
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
	}

	result, err := h.searchService.Search(r.Context(), userID, q.Get("query"), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
