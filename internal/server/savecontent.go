package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/cardfolio/internal/model"
	"github.com/rcliao/cardfolio/internal/remote"
	"github.com/rcliao/cardfolio/internal/store"
)

type saveContentRequest struct {
	ID      string          `json:"id"`
	Content json.RawMessage `json:"content"`
	SavedAt string          `json:"savedAt"`
}

// handleSaveContent stores a posted SavedContent in the repository.
func (s *Server) handleSaveContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req saveContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.log.Warn().Err(err).Msg("save-content: bad body")
		writeError(w, http.StatusBadRequest, "Invalid content structure")
		return
	}
	if req.ID == "" || len(req.Content) == 0 || string(req.Content) == "null" {
		writeError(w, http.StatusBadRequest, "Invalid content structure")
		return
	}
	var content model.EditorContent
	if err := json.Unmarshal(req.Content, &content); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid content structure")
		return
	}

	snap := model.SavedContent{ID: req.ID, Content: content, SavedAt: req.SavedAt}
	if snap.SavedAt == "" {
		snap.SavedAt = model.Timestamp(s.now())
	}
	if err := s.repo.Put(r.Context(), snap); err != nil {
		s.log.Error().Err(err).Str("id", req.ID).Msg("save-content: repository put")
		writeError(w, http.StatusInternalServerError, "Failed to save content")
		return
	}

	s.log.Info().Str("id", req.ID).Int("blocks", len(content.Blocks)).Msg("content stored")
	writeJSON(w, http.StatusOK, remote.SaveResponse{
		Success: true,
		Message: "Content saved successfully",
		SavedAt: snap.SavedAt,
	})
}

// handleGetContent returns a stored snapshot.
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.repo.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Content not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("save-content: repository get")
		writeError(w, http.StatusInternalServerError, "Failed to load content")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
