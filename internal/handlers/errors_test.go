package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"patrimonio-inventory-backend/internal/repository"
	"patrimonio-inventory-backend/internal/services/inventory"
	service "patrimonio-inventory-backend/internal/services/reconciliation"
	"patrimonio-inventory-backend/internal/spreadsheet"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: blank code", inventory.ErrInvalidArgument), http.StatusBadRequest},
		{spreadsheet.ErrUnsupportedFormat, http.StatusBadRequest},
		{fmt.Errorf("%w: session x", inventory.ErrNotFound), http.StatusNotFound},
		{repository.ErrAssetNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: closed", inventory.ErrInvalidState), http.StatusConflict},
		{service.ErrImportInProgress, http.StatusConflict},
		{gorm.ErrDuplicatedKey, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestProcessValidationErrors(t *testing.T) {
	type payload struct {
		Code string `validate:"required"`
		Name string `validate:"max=3"`
	}
	err := validator.New().Struct(payload{Name: "longer"})

	assert.Equal(t, map[string]string{"Code": "required", "Name": "max"}, ProcessValidationErrors(err))
	assert.Nil(t, ProcessValidationErrors(errors.New("EOF")))
}
