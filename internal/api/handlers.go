package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lexa/internal/drillservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *drillservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *drillservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListGroups handles GET /api/groups.
//
//	@Summary		List word groups in unlock order
//	@Tags			groups
//	@Produce		json
//	@Success		200	{object}	GroupListResponse
//	@Security		BearerAuth
//	@Router			/groups [get]
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.Groups(r.Context())
	if err != nil {
		writeError(w, "list groups", err)
		return
	}
	writeJSON(w, http.StatusOK, GroupListResponse{Groups: groups})
}

// ListItems handles GET /api/items.
//
//	@Summary		List vocabulary items, optionally for one group
//	@Tags			items
//	@Produce		json
//	@Param			group	query		string	false	"Group ID"
//	@Success		200		{object}	ItemListResponse
//	@Security		BearerAuth
//	@Router			/items [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Items(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		writeError(w, "list items", err)
		return
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Items: items, Total: len(items)})
}

// DueItems handles GET /api/items/due.
//
//	@Summary		List items due for review, weakest first
//	@Tags			items
//	@Produce		json
//	@Success		200	{object}	ItemListResponse
//	@Security		BearerAuth
//	@Router			/items/due [get]
func (h *Handler) DueItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.DueItems(r.Context())
	if err != nil {
		writeError(w, "due items", err)
		return
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Items: items, Total: len(items)})
}

// MuteItem handles PUT /api/items/{id}/mute.
//
//	@Summary		Mute or unmute an item
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Item ID"
//	@Param			body	body		MuteRequest	true	"Mute state"
//	@Success		200		{object}	models.VocabularyItem
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items/{id}/mute [put]
func (h *Handler) MuteItem(w http.ResponseWriter, r *http.Request) {
	var req MuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.SetMuted(r.Context(), chi.URLParam(r, "id"), *req.Muted)
	if err != nil {
		writeError(w, "mute item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Search handles GET /api/search.
//
//	@Summary		Search items by term or translation
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	hits, err := h.svc.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: hits})
}

// Profile handles GET /api/profile.
//
//	@Summary		Get the learner profile
//	@Tags			profile
//	@Produce		json
//	@Success		200	{object}	models.LearnerProfile
//	@Security		BearerAuth
//	@Router			/profile [get]
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context())
	if err != nil {
		writeError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List completed sessions, newest first
//	@Tags			sessions
//	@Produce		json
//	@Param			limit	query		int	false	"Max results"
//	@Success		200		{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, "list sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: rows})
}

// StartSession handles POST /api/sessions.
//
//	@Summary		Start a drill session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StartSessionRequest	true	"Session options"
//	@Success		201		{object}	drillservice.SessionView
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.svc.StartSession(r.Context(), drillservice.StartRequest{GroupID: req.GroupID, Goal: req.Goal})
	if err != nil {
		writeError(w, "start session", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get an active session and its current item
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	drillservice.SessionView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Current(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DiscardSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Discard an active session without grading it
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DiscardSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "discard session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitAnswer handles POST /api/sessions/{id}/answers.
//
//	@Summary		Answer the current item of a session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			body	body		SubmitAnswerRequest	true	"Answer"
//	@Success		200		{object}	drill.AnswerResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/answers [post]
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SubmitAnswer(r.Context(), chi.URLParam(r, "id"), req.ItemID, req.Answer)
	if err != nil {
		writeError(w, "submit answer", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CompleteSession handles POST /api/sessions/{id}/complete.
//
//	@Summary		Complete a session and apply level changes
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	drill.Completion
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/complete [post]
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	comp, err := h.svc.CompleteSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "complete session", err)
		return
	}
	writeJSON(w, http.StatusOK, comp)
}
