package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"patrimonio-inventory-backend/internal/config"
	"patrimonio-inventory-backend/internal/repository"
	"patrimonio-inventory-backend/internal/services/inventory"
	service "patrimonio-inventory-backend/internal/services/reconciliation"
	"patrimonio-inventory-backend/internal/spreadsheet"
)

// statusFor maps domain errors onto HTTP status codes. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrInvalidArgument),
		errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, repository.ErrAssetNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInvalidState),
		errors.Is(err, service.ErrImportInProgress),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, funcName string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "handler", funcName, c.Request.URL.Path, nil, err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ProcessValidationErrors flattens binding errors into field -> failed rule.
func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

func respondBindError(c *gin.Context, err error) {
	if fields := ProcessValidationErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
}

func parseUUIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label + " ID"})
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUID parses an optional id from a query or form value.
func optionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
