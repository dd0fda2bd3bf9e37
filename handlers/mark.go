package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/camden-git/signabackend/services"
)

// MarkHandler serves the /api/sign routes. All of them sit behind the
// AuthMiddleware.
type MarkHandler struct {
	Marks  *services.MarkService
	Logger *slog.Logger
}

func NewMarkHandler(marks *services.MarkService, logger *slog.Logger) *MarkHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkHandler{Marks: marks, Logger: logger}
}

// CreateMark registers a sign and, for a new email, its owner. The generated
// password appears only in this response.
func (h *MarkHandler) CreateMark(w http.ResponseWriter, r *http.Request) {
	var payload services.CreateMarkInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	res, err := h.Marks.CreateMarkWithPerson(r.Context(), payload)
	if err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	body := map[string]interface{}{
		"message":             "sign created successfully",
		"sign":                res.Mark,
		"user":                res.Person,
		"user_created":        res.UserCreated,
		"credentials_created": res.CredentialsCreated,
	}
	if res.UserCreated {
		body["password"] = res.Password
		body["note"] = fmt.Sprintf("user and credentials created, username %s; the password is shown only once", res.Person.Email)
	} else {
		body["note"] = "existing user reused"
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *MarkHandler) ListMarks(w http.ResponseWriter, r *http.Request) {
	marks, err := h.Marks.GetAllMarks(r.Context())
	if err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "signs retrieved successfully",
		"total":   len(marks),
		"signs":   marks,
	})
}

func (h *MarkHandler) GetMark(w http.ResponseWriter, r *http.Request) {
	id, err := signIDParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	mark, err := h.Marks.GetMarkByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "sign retrieved successfully",
		"sign":    mark.Mark,
		"user":    mark.Person,
	})
}

// UpdateMark applies a partial update; an empty body is a validation error.
func (h *MarkHandler) UpdateMark(w http.ResponseWriter, r *http.Request) {
	id, err := signIDParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var payload services.UpdateMarkInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	mark, err := h.Marks.UpdateMark(r.Context(), id, payload)
	if err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "sign updated successfully",
		"sign":    mark.Mark,
		"user":    mark.Person,
	})
}

func (h *MarkHandler) DeleteMark(w http.ResponseWriter, r *http.Request) {
	id, err := signIDParam(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.Marks.SoftDeleteMark(r.Context(), id); err != nil {
		writeServiceError(w, h.Logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "sign deleted successfully"})
}
