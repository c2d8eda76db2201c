package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/cardfolio/internal/card"
	"github.com/rcliao/cardfolio/internal/cardsession"
	"github.com/rcliao/cardfolio/internal/editor"
	"github.com/rcliao/cardfolio/internal/model"
	"github.com/rcliao/cardfolio/internal/persist"
	"github.com/rcliao/cardfolio/internal/render"
)

type documentResponse struct {
	SessionID    string                           `json:"sessionId,omitempty"`
	HasChanges   bool                             `json:"hasChanges"`
	Saving       bool                             `json:"saving"`
	Blocks       []model.Block                    `json:"blocks"`
	ProjectCards map[string]model.ProjectCardData `json:"projectCards"`
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	c := s.ctl.Content()
	writeJSON(w, http.StatusOK, documentResponse{
		SessionID:    s.ctl.SessionID(),
		HasChanges:   s.ctl.Dirty(),
		Saving:       s.ctl.Saving(),
		Blocks:       c.Blocks,
		ProjectCards: c.ProjectCards,
	})
}

func (s *Server) handleReplaceDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blocks *[]model.Block `json:"blocks"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.Blocks == nil {
		writeError(w, http.StatusBadRequest, "blocks array required")
		return
	}
	s.doc.ReplaceBlocks(*req.Blocks)
	s.handleGetDocument(w, r)
}

func (s *Server) handleInsertCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AfterID string `json:"afterId"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
	}
	b := s.adapter.NewBlock()
	if err := s.doc.InsertBlocks([]model.Block{b}, req.AfterID); err != nil {
		if errors.Is(err, editor.ErrBlockNotFound) {
			writeError(w, http.StatusNotFound, "block not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to insert card")
		return
	}

	// InsertBlocks assigned the id; read the block back to return it.
	blocks := s.doc.Blocks()
	id := b.Prop("id")
	inserted, _ := cardsession.FindCard(blocks, id)
	writeJSON(w, http.StatusCreated, inserted)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctl.Save(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, persist.MsgSaveFailed)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.ctl.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, persist.MsgExportFailed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleImport accepts a multipart upload in the "file" field or a raw
// JSON body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxBodySize); err != nil {
			writeError(w, http.StatusBadRequest, persist.MsgImportFailed)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file field required")
			return
		}
		defer f.Close()
		src = f
	}

	err := s.ctl.Import(r.Context(), src)
	switch {
	case errors.Is(err, persist.ErrInvalidImport):
		writeError(w, http.StatusBadRequest, persist.MsgInvalidFormat)
	case err != nil:
		writeError(w, http.StatusInternalServerError, persist.MsgImportFailed)
	default:
		s.handleGetDocument(w, r)
	}
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var ev editor.KeyEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid key event")
		return
	}
	handled, err := s.ctl.HandleKey(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"handled": handled})
}

type schemaResponse struct {
	Type     string            `json:"type"`
	Props    model.CardProps   `json:"propSchema"`
	Aliases  []string          `json:"aliases"`
	Messages map[string]string `json:"placeholders"`
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schemaResponse{
		Type: model.TypeProjectCard,
		Props: model.CardProps{
			Title:         model.DefaultTitle,
			EditorContent: model.EmptyContent,
		},
		Aliases: card.InsertAliases,
		Messages: map[string]string{
			"content": cardsession.Placeholder,
			"title":   model.UntitledTitle,
		},
	})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	c := s.ctl.Content()
	now := s.now()
	out := []render.CardPreview{}
	seen := map[string]bool{}
	for _, b := range c.Blocks {
		pc, ok := b.Variant().(model.ProjectCard)
		if !ok || seen[pc.Props.ID] {
			continue
		}
		seen[pc.Props.ID] = true
		out = append(out, render.NewPreview(c.ProjectCards[pc.Props.ID], now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCardPreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, ok := cardsession.FindCard(s.doc.Blocks(), id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := s.renderer.Card(&buf, s.adapter.Deserialize(model.CardPropsFrom(b))); err != nil {
		s.log.Error().Err(err).Str("card", id).Msg("render card preview")
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.renderer.Portfolio(&buf, s.title, s.ctl.Content()); err != nil {
		s.log.Error().Err(err).Msg("render portfolio")
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
