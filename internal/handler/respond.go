package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"vaultdrive/internal/apperror"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handler] Error encoding response: %v", err)
	}
}

// writeError переводит доменную ошибку в HTTP-статус. Внутренние ошибки
// наружу не раскрываются, только логируются.
func writeError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(err)

	message := err.Error()
	if kind == apperror.KindInternal {
		log.Printf("[Handler] Internal error: %v", err)
		message = "internal server error"
	}

	writeJSON(w, status, errorResponse{Error: message, Code: string(kind)})
}
