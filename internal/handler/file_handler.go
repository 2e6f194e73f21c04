package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

// Лимит на память при разборе multipart. Остальное уходит во временные
// файлы, сам размер файла ограничивает сервис.
const maxMultipartMemory = 32 << 20

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// UploadFile принимает multipart/form-data: поле file плюс опциональные
// folder_id и access_level.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.New(apperror.KindInvalidArgument, "file field is required"))
		return
	}
	defer file.Close()

	var folderID *int64
	if idStr := r.FormValue("folder_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid folder_id"))
			return
		}
		folderID = &id
	}

	accessLevel := domain.AccessPrivate
	if lvl := r.FormValue("access_level"); lvl != "" {
		accessLevel = domain.AccessLevel(lvl)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	created, err := h.fileService.Upload(r.Context(), userID, domain.FileUpload{
		Name:        header.Filename,
		MIMEType:    mimeType,
		Size:        header.Size,
		FolderID:    folderID,
		AccessLevel: accessLevel,
		Data:        file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
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

	download, err := h.fileService.Download(r.Context(), userID, fileUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, download.File)
}

func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
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

	download, err := h.fileService.Download(r.Context(), userID, fileUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	serveFileBytes(w, download)
}

func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	opts := domain.FileListOptions{
		Search:         q.Get("search"),
		MIMETypePrefix: q.Get("mime_type"),
		SortBy:         q.Get("sort_by"),
		SortOrder:      q.Get("order"),
	}
	if pageStr := q.Get("page"); pageStr != "" {
		opts.Page, _ = strconv.Atoi(pageStr)
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		opts.Limit, _ = strconv.Atoi(limitStr)
	}

	list, err := h.fileService.List(r.Context(), userID, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
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

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid request body"))
		return
	}

	file, err := h.fileService.Rename(r.Context(), userID, fileUUID, req.NewName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

func (h *FileHandler) SetAccessLevel(w http.ResponseWriter, r *http.Request) {
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

	var req accessLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.New(apperror.KindInvalidArgument, "invalid request body"))
		return
	}

	file, err := h.fileService.SetAccessLevel(r.Context(), userID, fileUUID, req.AccessLevel)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
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

	if err := h.fileService.Delete(r.Context(), userID, fileUUID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseFileUUID(r *http.Request) (uuid.UUID, error) {
	fileUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		return uuid.Nil, apperror.New(apperror.KindInvalidArgument, "invalid file UUID")
	}
	return fileUUID, nil
}

// serveFileBytes отдает содержимое файла как attachment. Имя файла
// экранируется для не-ASCII через RFC 5987.
func serveFileBytes(w http.ResponseWriter, download *domain.FileDownload) {
	file := download.File

	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(
		`attachment; filename*=UTF-8''%s`, url.PathEscape(file.Name)))

	w.Write(download.Data)
}
