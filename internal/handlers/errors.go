package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"anhthoxay/internal/escrow"
)

var kindStatus = map[escrow.Kind]int{
	escrow.KindNotFound:                http.StatusNotFound,
	escrow.KindInvalidStatusTransition: http.StatusConflict,
	escrow.KindInvalidReleaseAmount:    http.StatusUnprocessableEntity,
	escrow.KindSettingsNotFound:        http.StatusServiceUnavailable,
	escrow.KindInvalidInput:            http.StatusBadRequest,
	escrow.KindConflict:                http.StatusConflict,
}

// statusFor maps an escrow error kind to its HTTP status.
func statusFor(kind escrow.Kind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// respondError writes err as an ErrorResponse. Errors outside the escrow
// taxonomy are reported without detail.
func respondError(c *gin.Context, err error) {
	kind := escrow.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}
	var e *escrow.Error
	msg := err.Error()
	if errors.As(err, &e) {
		msg = e.Message
	}
	c.JSON(status, ErrorResponse{Error: msg, Code: string(kind), Details: escrow.MetadataOf(err)})
}
