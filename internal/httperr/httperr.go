package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Kind:    kindForStatus(status),
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, HTTPError{
		Code:    code,
		Kind:    KindValidation,
		Message: message,
	})
}

// FromError writes err using the status that matches its kind.
func FromError(c *gin.Context, err error) {
	code := "internal_error"
	var be *BusinessError
	if errors.As(err, &be) {
		code = be.Code
	}

	kind := KindOf(err)
	c.JSON(StatusFor(kind), HTTPError{
		Code:    code,
		Kind:    kind,
		Message: MessageOf(err),
	})
}

func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusServiceUnavailable:
		return KindNetwork
	default:
		return KindInternal
	}
}
