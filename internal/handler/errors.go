package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cardvault-api/internal/middleware"
	"cardvault-api/internal/model"
	"cardvault-api/pkg/apierror"
	"cardvault-api/pkg/response"
)

const maxBodyBytes = 64 << 10

// toAPIError translates a domain failure into its HTTP form.
func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	code, msg := "INTERNAL_ERROR", err.Error()
	var de *model.Error
	if errors.As(err, &de) {
		code = de.Code
	}

	switch model.KindOf(err) {
	case model.KindValidation:
		return apierror.New(http.StatusBadRequest, code, msg)
	case model.KindNotFound:
		return apierror.New(http.StatusNotFound, code, msg)
	case model.KindForbidden:
		return apierror.New(http.StatusForbidden, code, msg)
	case model.KindLimit:
		return apierror.New(http.StatusTooManyRequests, code, msg)
	case model.KindUnavailable:
		return apierror.New(http.StatusConflict, code, msg)
	case model.KindPersistence:
		return apierror.New(http.StatusServiceUnavailable, code, "storage temporarily unavailable, retry the operation")
	default:
		return apierror.New(http.StatusInternalServerError, code, "the operation failed and was rolled back")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Printf("[Handler] %s %s failed (request %s): %v",
			r.Method, r.URL.Path, middleware.GetRequestID(r.Context()), err)
	}
	response.Error(w, apiErr)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}
