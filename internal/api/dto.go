package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lexa/internal/drillservice"
	"github.com/starford/lexa/internal/models"
	"github.com/starford/lexa/internal/store"
)

// StartSessionRequest is the request body for starting a session.
type StartSessionRequest struct {
	GroupID string `json:"group_id,omitempty" example:"01-basics"`
	Goal    int    `json:"goal,omitempty" example:"20"`
}

// Validate checks the session goal range. Zero selects the default goal.
func (r *StartSessionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Goal, validation.Min(0), validation.Max(drillservice.MaxGoal)),
		validation.Field(&r.GroupID, validation.Length(0, 200)),
	)
}

// SubmitAnswerRequest is the request body for answering the current item.
type SubmitAnswerRequest struct {
	ItemID string `json:"item_id" example:"3f2a9c81d04e6b57" validate:"required"`
	Answer string `json:"answer" example:"gato" validate:"required"`
}

// Validate requires both fields.
func (r *SubmitAnswerRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ItemID, validation.Required),
		validation.Field(&r.Answer, validation.Required),
	)
}

// MuteRequest is the request body for muting or unmuting an item.
type MuteRequest struct {
	Muted *bool `json:"muted" example:"true" validate:"required"`
}

// Validate requires muted to be present.
func (r *MuteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Muted, validation.NotNil),
	)
}

// GroupListResponse wraps group listings.
type GroupListResponse struct {
	Groups []*models.Group `json:"groups" validate:"required"`
}

// ItemListResponse wraps item listings.
type ItemListResponse struct {
	Items []*models.VocabularyItem `json:"items" validate:"required"`
	Total int                      `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchHit `json:"results" validate:"required"`
}

// SessionListResponse wraps completed session history.
type SessionListResponse struct {
	Sessions []store.SessionRow `json:"sessions" validate:"required"`
}

// DeckUploadResponse is returned after a deck upload was imported.
type DeckUploadResponse struct {
	GroupID string `json:"group_id" example:"01-basics" validate:"required"`
	Path    string `json:"path" example:"01-basics.md" validate:"required"`
	Added   int    `json:"added" example:"12"`
	Updated int    `json:"updated" example:"0"`
	Size    int64  `json:"size" example:"2048"`
}
