package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	ProductID int64 `validate:"gt=0"`
	Quantity  int   `validate:"gte=1"`
}

type orderInput struct {
	CustomerID int64       `validate:"required,gt=0"`
	Lines      []lineInput `validate:"required,min=1,dive"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(orderInput{
		CustomerID: 1,
		Lines:      []lineInput{{ProductID: 5, Quantity: 0}},
	})
	require.Error(t, err)

	formatted := FormatValidationError(err)
	require.Equal(t, "lines[0].quantity must be greater than or equal to 1", formatted["lines[0].quantity"])

	err = v.Struct(orderInput{})
	formatted = FormatValidationError(err)
	require.Contains(t, formatted, "customerid")
	require.Contains(t, formatted, "lines")
}

func TestFormatValidationError_NotValidation(t *testing.T) {
	formatted := FormatValidationError(errors.New("bad json"))
	require.Equal(t, map[string]string{"request": "bad json"}, formatted)
}

func TestParseBoolWithFallback(t *testing.T) {
	t.Setenv("ORDER_TRACING", "false")
	require.False(t, ParseBoolWithFallback("ORDER_TRACING", true))

	t.Setenv("ORDER_TRACING", "nope")
	require.True(t, ParseBoolWithFallback("ORDER_TRACING", true))
}
