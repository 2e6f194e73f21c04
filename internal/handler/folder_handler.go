package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

type FolderHandler struct {
	folderService *service.FolderService
}

func NewFolderHandler(folderService *service.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type renameRequest struct {
	NewName string `json:"new_name"`
}

type accessLevelRequest struct {
	AccessLevel domain.AccessLevel `json:"access_level"`
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid request body"))
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), userID, req.Name, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := parseFolderID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	folder, err := h.folderService.GetFolder(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

// GetContents отдает содержимое папки. Без id в URL отдается корень.
func (h *FolderHandler) GetContents(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var folderID *int64
	if idStr := chi.URLParam(r, "id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid folder ID"))
			return
		}
		folderID = &id
	}

	content, err := h.folderService.GetContents(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (h *FolderHandler) GetPath(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := parseFolderID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	path, err := h.folderService.GetPath(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Path []domain.PathEntry `json:"path"`
	}{Path: path})
}

func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := parseFolderID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid request body"))
		return
	}

	folder, err := h.folderService.RenameFolder(r.Context(), userID, folderID, req.NewName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) SetAccessLevel(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := parseFolderID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req accessLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid request body"))
		return
	}

	folder, err := h.folderService.SetAccessLevel(r.Context(), userID, folderID, req.AccessLevel)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := parseFolderID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), userID, folderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseFolderID(r *http.Request) (int64, error) {
	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperror.New(apperror.KindInvalidArgument, "invalid folder ID")
	}
	return folderID, nil
}
