package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lexa/internal/drillservice"
)

const maxUploadBytes = 10 << 20 // 10 MB

// DeckHandler accepts deck uploads.
type DeckHandler struct {
	svc *drillservice.Service
}

// NewDeckHandler creates a DeckHandler.
func NewDeckHandler(svc *drillservice.Service) *DeckHandler {
	return &DeckHandler{svc: svc}
}

// Upload handles POST /api/decks (multipart/form-data, field "file").
//
//	@Summary		Upload and import a Markdown or XLSX deck
//	@Tags			decks
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Deck file"
//	@Success		201		{object}	DeckUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks [post]
func (h *DeckHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	imp, err := h.svc.ImportDeck(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, "import deck", err)
		return
	}

	writeJSON(w, http.StatusCreated, DeckUploadResponse{
		GroupID: imp.GroupID,
		Path:    imp.Path,
		Added:   imp.Added,
		Updated: imp.Updated,
		Size:    int64(len(data)),
	})
}

// Remove handles DELETE /api/decks/{name}.
//
//	@Summary		Delete a deck file from the library (review progress is kept)
//	@Tags			decks
//	@Param			name	path	string	true	"Deck file name"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{name} [delete]
func (h *DeckHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveDeck(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, "remove deck", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
