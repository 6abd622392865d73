package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/tableorder/lifecycle"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/repository"
	"github.com/yeremiapane/tableorder/utils"
)

var errForbidden = errors.New("forbidden")

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrCannotCancel),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrTerminal),
		errors.Is(err, lifecycle.ErrNotEditable),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func respondServiceError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		utils.ErrorLogger.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	utils.RespondError(c, code, err)
}

func uintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: invalid %s", models.ErrValidation, name)
	}
	return uint(v), nil
}

// actor names who made a change, for the status log.
func actor(c *gin.Context) string {
	if role := c.GetString("role"); role != "" {
		return fmt.Sprintf("%s:%d", role, c.GetUint("userID"))
	}
	return "customer"
}
