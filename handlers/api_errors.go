package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/camden-git/signabackend/services"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps a use case error onto the error envelope. Only the
// public detail reaches the client.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	kind := services.KindOf(err)
	if kind == services.KindInternal {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	WriteAPIError(w, kind.HTTPStatus(), kind.String(), services.PublicDetail(err))
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	WriteAPIError(w, http.StatusBadRequest, services.KindValidation.String(), detail)
}
