package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/aussiebroadwan/taskd/pkg/httpx"
	"github.com/aussiebroadwan/taskd/pkg/slogx"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// writeServiceError renders a service failure. Storage and unknown errors
// are logged with their cause and reach the client as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		slogx.FromContext(r.Context()).Error("unhandled error", "err", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	switch se.Kind {
	case service.KindInvalid:
		if len(se.Fields) > 0 {
			httpx.WriteValidationError(w, r, se.Fields)
			return
		}
		httpx.WriteError(w, r, http.StatusBadRequest, reasonOr(se, "bad request"))
	case service.KindUnauthorized:
		httpx.WriteError(w, r, http.StatusUnauthorized, reasonOr(se, httpx.ReasonUnauthorized))
	case service.KindForbidden:
		httpx.WriteError(w, r, http.StatusForbidden, reasonOr(se, httpx.ReasonForbidden))
	case service.KindNotFound:
		httpx.WriteError(w, r, http.StatusNotFound, reasonOr(se, "not found"))
	case service.KindConflict:
		httpx.WriteError(w, r, http.StatusConflict, reasonOr(se, "conflict"))
	default:
		slogx.FromContext(r.Context()).Error("request failed", "kind", se.Kind.String(), "err", se.Err)
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func reasonOr(se *service.Error, def string) string {
	if se.Reason != "" {
		return se.Reason
	}
	return def
}

// decodeBody reads a JSON body into dst, rejecting unknown fields.
// It writes the 400 itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}
