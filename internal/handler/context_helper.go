package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/edutrack-io/kocluk-api/internal/middleware"
	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
)

var validate = validator.New()

var zeroTime time.Time

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func scopeFromContext(c *gin.Context) models.AccessScope {
	value, exists := c.Get(middleware.ContextScopeKey)
	if !exists {
		return models.AccessScope{}
	}
	scope, ok := value.(models.AccessScope)
	if !ok {
		return models.AccessScope{}
	}
	return scope
}

// bindJSON decodes and validates a request payload.
func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	if err := validate.Struct(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusUnprocessableEntity, "payload failed validation")
	}
	return nil
}

func parsePage(c *gin.Context) (page, size int) {
	page, size = 1, 20
	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && s > 0 {
		size = s
	}
	return page, size
}

// parseDateQuery reads a YYYY-MM-DD query parameter, returning fallback when
// absent and an error when malformed.
func parseDateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, name+" must be formatted as YYYY-MM-DD")
	}
	return parsed, nil
}
