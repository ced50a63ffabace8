package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bull/docchat-server/internal/chatbot"
	"github.com/bull/docchat-server/internal/document"
)

// decodeMessage reads a MessageRequest body. Errors are reported as validation failures.
func decodeMessage(w http.ResponseWriter, r *http.Request) (MessageRequest, error) {
	var req MessageRequest
	body := http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, &chatbot.ValidationError{Message: "invalid request body: expected JSON with a \"message\" field", Err: err}
	}
	return req, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMessage(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	reply, err := s.svc.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResponseBody{Response: reply})
}

func (s *Server) handleResetChat(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetSession(r.Context(), r.PathValue("session")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.Sessions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []string{}
	}
	writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions, Count: len(sessions)})
}

func (s *Server) handleSmallChat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMessage(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	reply, err := s.svc.SmallChat(r.Context(), req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResponseBody{Response: reply})
}

// handleSuggestions always answers 200; failures produce an empty list.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions := []string{}

	req, err := decodeMessage(w, r)
	if err != nil {
		s.logger.Warn("Suggestions request rejected", "error", err)
	} else {
		suggestions = s.svc.Suggestions(r.Context(), req.Message)
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("file too large: limit is %d bytes", s.maxUploadBytes))
			return
		}
		writeDetail(w, http.StatusBadRequest, "expected a multipart form with a \"file\" field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing \"file\" field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	msg, err := s.svc.Upload(r.Context(), header.Filename, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMessage(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	answer, err := s.svc.Query(r.Context(), req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResponseBody{Response: answer})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Summarize(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{Summary: summary})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.svc.Documents()

	resp := DocumentsResponse{Documents: make([]DocumentInfo, 0, len(docs)), Count: len(docs)}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, documentInfo(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, ok := s.svc.Document(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("document '%s' not found", id))
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{DocumentInfo: documentInfo(doc), Text: doc.Text})
}

func documentInfo(d document.Document) DocumentInfo {
	return DocumentInfo{
		ID:         d.ID,
		Chars:      len([]rune(d.Text)),
		UploadedAt: d.UploadedAt,
	}
}
