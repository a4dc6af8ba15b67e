package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reviewpilot/reviewpilot/internal/db/models"
	"github.com/reviewpilot/reviewpilot/internal/reply"
)

type replyDTO struct {
	ID              string `json:"id"`
	ReviewID        string `json:"review_id"`
	Status          string `json:"status"`
	DraftText       string `json:"draft_text"`
	FinalText       string `json:"final_text,omitempty"`
	GenerationCount int    `json:"generation_count"`
	RiskLevel       string `json:"risk_level,omitempty"`
	Tags            string `json:"tags,omitempty"`
	LastError       string `json:"last_error,omitempty"`
}

func toReplyDTO(r *models.Reply) replyDTO {
	return replyDTO{
		ID:              r.ID,
		ReviewID:        r.ReviewID,
		Status:          r.Status,
		DraftText:       r.DraftText,
		FinalText:       r.FinalText,
		GenerationCount: r.GenerationCount,
		RiskLevel:       r.RiskLevel,
		Tags:            r.Tags,
		LastError:       r.LastErrorCode,
	}
}

// GenerateHandler drafts a reply for a review, subject to generation quotas.
func GenerateHandler(svc *reply.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Generate(r.Context(), chi.URLParam(r, "reviewID"))
		if err != nil {
			writeWorkflowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReplyDTO(rep))
	}
}

// EditHandler replaces the draft text of a reply.
func EditHandler(svc *reply.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeCodeError(w, http.StatusBadRequest, "bad_request", "Request body must be JSON with a text field.")
			return
		}

		rep, err := svc.Edit(r.Context(), chi.URLParam(r, "replyID"), body.Text)
		if err != nil {
			writeWorkflowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReplyDTO(rep))
	}
}

// ApproveHandler marks a draft as human-approved.
func ApproveHandler(svc *reply.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Approve(r.Context(), chi.URLParam(r, "replyID"))
		if err != nil {
			writeWorkflowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReplyDTO(rep))
	}
}

// PublishHandler posts the reply to Google. The optional text field is
// persisted as a final edit before publishing. Responds with the final
// status plus, on failure, the classified error and its retryable flag.
func PublishHandler(svc *reply.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		// Body is optional; a publish without edits sends none.
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&body)
		}

		result, err := svc.Publish(r.Context(), chi.URLParam(r, "replyID"), body.Text)
		if err != nil {
			writeWorkflowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reply.ErrReviewNotFound), errors.Is(err, reply.ErrReplyNotFound):
		writeCodeError(w, http.StatusNotFound, "not_found", "The review or reply does not exist.")
	case errors.Is(err, reply.ErrAlreadyPosted):
		writeCodeError(w, http.StatusConflict, "already_posted", "This reply was already published and can no longer change.")
	case errors.Is(err, reply.ErrEmptyDraft):
		writeCodeError(w, http.StatusBadRequest, "empty_draft", "The draft text is empty.")
	case errors.Is(err, reply.ErrBadTransition):
		writeCodeError(w, http.StatusConflict, "bad_transition", "The reply is not in a state that allows this action.")
	case errors.Is(err, reply.ErrNoConnection):
		writeCodeError(w, http.StatusConflict, "no_connection", "This business has no Google location connected.")
	default:
		writeKindError(w, err)
	}
}
