package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

type ShareHandler struct {
	shareService *service.ShareService
}

func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

type shareRequest struct {
	Email      string                 `json:"email"`
	Permission domain.SharePermission `json:"permission,omitempty"`
}

func (h *ShareHandler) ShareFile(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid request body"))
		return
	}

	share, err := h.shareService.ShareFile(r.Context(), userID, fileUUID, req.Email, req.Permission)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, share)
}

func (h *ShareHandler) ShareFolder(w http.ResponseWriter, r *http.Request) {
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

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid request body"))
		return
	}

	share, err := h.shareService.ShareFolder(r.Context(), userID, folderID, req.Email, req.Permission)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, share)
}

func (h *ShareHandler) CreateFilePublicLink(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	link, err := h.shareService.CreatePublicLink(r.Context(), userID, fileUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

func (h *ShareHandler) CreateFolderPublicLink(w http.ResponseWriter, r *http.Request) {
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

	link, err := h.shareService.CreateFolderPublicLink(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

// ResolvePublicFile отдает содержимое публичного файла. Авторизация не
// требуется, токен и есть право доступа.
func (h *ShareHandler) ResolvePublicFile(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	download, err := h.shareService.ResolvePublicToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	serveFileBytes(w, download)
}

func (h *ShareHandler) ResolvePublicInfo(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	file, err := h.shareService.ResolvePublicInfo(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}
