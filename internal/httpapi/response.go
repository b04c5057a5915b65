package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/chirpolly/internal/content"
	"github.com/example/chirpolly/internal/database"
	"github.com/example/chirpolly/internal/snapshot"
	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// errorStatus maps domain errors to a status and an error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, srs.ErrInvalidQuality):
		return http.StatusBadRequest, "invalid_quality"
	case errors.Is(err, snapshot.ErrMalformed), errors.Is(err, models.ErrInvalidItem):
		return http.StatusBadRequest, "invalid_snapshot"
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "item_not_found"
	case errors.Is(err, content.ErrUnitNotFound):
		return http.StatusNotFound, "unit_not_found"
	case errors.Is(err, content.ErrLanguageNotFound):
		return http.StatusNotFound, "language_not_found"
	}
	return http.StatusInternalServerError, "internal"
}
