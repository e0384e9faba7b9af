package http

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/roamstack/trip-bookings/internal/domain"
)

const maxAttachmentBytes = 10 << 20

// ListReviews returns a base trip's reviews together with their rating
// summary, the shape the trip screen renders.
func (h *Handlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	baseTripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	reviews, err := h.repo.ListReviews(r.Context(), baseTripID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"summary": domain.SummarizeReviews(reviews),
	})
}

func (h *Handlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	baseTripID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Rating int    `json:"rating"`
		Text   string `json:"review_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		http.Error(w, "choose a rating between 1 and 5", http.StatusBadRequest)
		return
	}

	review := domain.Review{
		ID:         uuid.New(),
		BaseTripID: baseTripID,
		UserID:     userID,
		Rating:     req.Rating,
		Text:       req.Text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.repo.CreateReview(r.Context(), review); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handlers) UpdateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Rating int    `json:"rating"`
		Text   string `json:"review_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		http.Error(w, "choose a rating between 1 and 5", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateReview(r.Context(), id, userID, req.Rating, req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) DeleteReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteReview(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateComplaint accepts a multipart form with subject, body and an
// optional attachment, which is uploaded to object storage first.
func (h *Handlers) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	subject := r.FormValue("subject")
	body := r.FormValue("body")
	if subject == "" || body == "" {
		http.Error(w, "subject and body are required", http.StatusBadRequest)
		return
	}

	var attachmentURL string
	if file, header, err := r.FormFile("attachment"); err == nil {
		defer file.Close()
		key := uuid.NewString() + filepath.Ext(header.Filename)
		contentType := header.Header.Get("Content-Type")
		attachmentURL, err = h.storage.Upload(r.Context(), key, contentType, file)
		if err != nil {
			h.logger.Error("upload attachment: ", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
	}

	complaint := domain.Complaint{
		ID:            uuid.New(),
		UserID:        userID,
		Subject:       subject,
		Body:          body,
		AttachmentURL: attachmentURL,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.repo.CreateComplaint(r.Context(), complaint); err != nil {
		writeError(w, err)
		return
	}
	h.audit.LogComplaint(r.Context(), complaint)
	writeJSON(w, http.StatusCreated, complaint)
}
