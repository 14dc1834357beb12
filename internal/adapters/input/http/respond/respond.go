package respond

import (
	"encoding/json"
	"net/http"

	"github.com/walletera/werrors"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}

// WError maps the error taxonomy onto HTTP statuses: absent records are
// 404, everything else is a 500 the caller may retry.
func WError(w http.ResponseWriter, werr werrors.WError) {
	switch werr.Code() {
	case werrors.ResourceNotFoundErrorCode:
		Error(w, http.StatusNotFound, werr.Message())
	default:
		Error(w, http.StatusInternalServerError, "unexpected internal error")
	}
}
