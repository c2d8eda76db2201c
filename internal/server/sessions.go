package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/cardfolio/internal/cardsession"
	"github.com/rcliao/cardfolio/internal/editor"
	"github.com/rcliao/cardfolio/internal/model"
)

// sessionError maps session errors to status codes.
func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cardsession.ErrSessionNotFound), errors.Is(err, cardsession.ErrCardNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cardsession.ErrClosed), errors.Is(err, cardsession.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, cardsession.MsgSaveFailed)
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*cardsession.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		sessionError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Open(chi.URLParam(r, "id"))
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

type editSessionRequest struct {
	Title   *string        `json:"title"`
	Content *[]model.Block `json:"content"`
}

func (s *Server) handleEditSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req editSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Title != nil {
		if err := sess.SetTitle(*req.Title); err != nil {
			sessionError(w, err)
			return
		}
	}
	if req.Content != nil {
		if err := sess.SetContent(*req.Content); err != nil {
			sessionError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, sess.View())
}

type saveSessionResponse struct {
	Card    model.ProjectCardData `json:"card"`
	Session cardsession.View      `json:"session"`
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	d, err := sess.Save(r.Context())
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveSessionResponse{Card: d, Session: sess.View()})
}

type closeRequest struct {
	Confirm bool `json:"confirm"`
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req closeRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
	}
	closed := sess.Close(func() bool { return req.Confirm })
	writeJSON(w, http.StatusOK, map[string]any{"closed": closed, "hasChanges": sess.Dirty()})
}

type sessionKeyRequest struct {
	editor.KeyEvent
	Confirm bool `json:"confirm"`
}

func (s *Server) handleSessionKey(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req sessionKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid key event")
		return
	}
	handled, err := sess.HandleKey(r.Context(), req.KeyEvent, func() bool { return req.Confirm })
	if err != nil {
		sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"handled": handled, "session": sess.View()})
}
