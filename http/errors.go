package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/entry-nets/sitehub"
)

// PlatformErrorCodeHeader carries the machine-readable error code.
const PlatformErrorCodeHeader = "X-Platform-Error-Code"

// ErrorHandler encodes service errors onto HTTP responses.
type ErrorHandler int

// HandleHTTPError writes err with the status mapped from its code, sets the
// X-Platform-Error-Code header, and emits a {"code","message"} JSON body.
// Non-sitehub errors are reported as a generic internal error so nothing
// internal leaks to callers.
func (h ErrorHandler) HandleHTTPError(ctx context.Context, err error, w http.ResponseWriter) {
	if err == nil {
		return
	}

	code := sitehub.ErrorCode(err)
	httpCode, ok := statusCode[code]
	if !ok {
		httpCode = http.StatusBadRequest
	}
	w.Header().Set(PlatformErrorCodeHeader, code)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(httpCode)

	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	e.Code = code
	if serr, ok := err.(*sitehub.Error); ok {
		e.Message = serr.Error()
	} else {
		e.Message = "An internal error has occurred"
	}
	b, _ := json.Marshal(e)
	_, _ = w.Write(b)
}

// statusCode maps sitehub error codes onto HTTP statuses.
var statusCode = map[string]int{
	sitehub.EInternal:            http.StatusInternalServerError,
	sitehub.EInvalid:             http.StatusBadRequest,
	sitehub.EUnprocessableEntity: http.StatusUnprocessableEntity,
	sitehub.EConflict:            http.StatusConflict,
	sitehub.ENotFound:            http.StatusNotFound,
	sitehub.EUnavailable:         http.StatusServiceUnavailable,
	sitehub.EForbidden:           http.StatusForbidden,
	sitehub.EUnauthorized:        http.StatusUnauthorized,
	sitehub.EUpstream:            http.StatusBadGateway,
}

func encodeResponse(ctx context.Context, w http.ResponseWriter, code int, res interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if res == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(res)
}
