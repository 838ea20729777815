package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the body of every failed request. The code is a stable
// machine-readable string the Tiled plugin branches on; the message is for
// the person reading the editor's error dialog:
//
//	{ "error": { "code": "conflict", "message": "Job 4f0b... is processing; results are not available yet" } }
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Errors sit under an "error" key so clients can tell success from failure
// by response shape alone.
type errorResponse struct {
	Error APIError `json:"error"`
}

// JSONError writes a structured error with the given HTTP status.
func JSONError(ctx *gin.Context, status int, code, msg string) {
	ctx.JSON(status, errorResponse{Error: APIError{Code: code, Message: msg}})
}

// Shorthands for the statuses the tagging endpoints actually produce.

// BadRequest covers malformed input: unparseable job IDs, missing tileset
// paths, bounds outside the allowed range.
func BadRequest(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusBadRequest, "bad_request", msg)
}

// NotFound covers unknown job IDs.
func NotFound(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusNotFound, "not_found", msg)
}

// Internal covers provider and storage failures.
func Internal(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusInternalServerError, "internal_error", msg)
}

// Conflict covers operations against a job in the wrong state, like reading
// results before the worker finished.
func Conflict(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusConflict, "conflict", msg)
}
