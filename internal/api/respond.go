package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bull/docchat-server/internal/chatbot"
	"github.com/bull/docchat-server/internal/extract"
	"github.com/bull/docchat-server/internal/retrieval"
)

const (
	msgInternal   = "Internal server error"
	msgEmptyStore = "No document uploaded yet. Please upload a PDF first."
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, ErrorResponse{Detail: detail})
}

// writeError maps err to a status code. Only validation messages reach the
// caller; everything else is logged and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr   *chatbot.ValidationError
		extErr *extract.ExtractionError
	)

	switch {
	case errors.As(err, &vErr):
		writeDetail(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, retrieval.ErrEmptyStore):
		writeDetail(w, http.StatusBadRequest, msgEmptyStore)
	case errors.As(err, &extErr):
		s.logger.Info("Extraction failed", "path", r.URL.Path, "file", extErr.Filename, "error", extErr.Err)
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("could not extract text from '%s'", extErr.Filename))
	case errors.Is(err, extract.ErrUnsupportedType):
		writeDetail(w, http.StatusBadRequest, "unsupported document type")
	default:
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgInternal)
	}
}
