package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"crm-backoffice/internal/apperror"
	"crm-backoffice/internal/logger"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/validation"
)

type SuccessResponse struct {
	Message    string             `json:"message"`
	Data       interface{}        `json:"data,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

type ErrorResponse struct {
	Message string        `json:"message"`
	Code    apperror.Code `json:"code"`
	Data    interface{}   `json:"data,omitempty"`
}

var (
	errInvalidPayload = apperror.BadRequest("Invalid request payload")
	errInvalidID      = apperror.BadRequest("Invalid id")
	errInvalidQuery   = apperror.BadRequest("Invalid query parameter")
	errMissingFile    = apperror.BadRequest("A file must be uploaded in the \"file\" field")
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message": "Error marshaling JSON response", "code": "INTERNAL_SERVER_ERROR"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithData(w http.ResponseWriter, code int, message string, data interface{}) {
	respondWithJSON(w, code, SuccessResponse{Message: message, Data: data})
}

func respondWithPage(w http.ResponseWriter, message string, data interface{}, pagination *models.Pagination) {
	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: message, Data: data, Pagination: pagination})
}

// respondWithError maps err onto the error envelope. Anything that is not a
// client error is logged with the request's logger first.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.As(err)
	status := apperror.HTTPStatus(appErr.Code)

	if status >= http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}

	response := ErrorResponse{Message: appErr.Message, Code: appErr.Code}
	if fields := validation.Fields(err); fields != nil {
		response.Data = fields
	}
	respondWithJSON(w, status, response)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Wrap(errInvalidPayload, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func pageRequest(r *http.Request) models.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return models.PageRequest{Page: page, Limit: limit}.Normalize()
}

func queryInt64(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.Wrap(errInvalidQuery, err)
	}
	return v, nil
}

const dateLayout = "2006-01-02"

// queryDate accepts YYYY-MM-DD or RFC 3339.
func queryDate(r *http.Request, key string) (*time.Time, error) {
	t, _, err := parseQueryDate(r, key)
	return t, err
}

// queryDateEnd is queryDate for inclusive upper bounds: a bare date covers
// the whole day, up to the last microsecond PostgreSQL can store.
func queryDateEnd(r *http.Request, key string) (*time.Time, error) {
	t, dateOnly, err := parseQueryDate(r, key)
	if t == nil || err != nil || !dateOnly {
		return t, err
	}
	end := t.AddDate(0, 0, 1).Add(-time.Microsecond)
	return &end, nil
}

func parseQueryDate(r *http.Request, key string) (*time.Time, bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, false, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, false, nil
	}
	return nil, false, errInvalidQuery
}
