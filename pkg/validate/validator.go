package validate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/hbiaou/crop-rotation/pkg/apperr"
)

// EchoValidator adapts go-playground/validator to echo.Validator.
type EchoValidator struct {
	v *validator.Validate
}

func New() *EchoValidator { return &EchoValidator{v: validator.New()} }

// Validate returns an apperr.ValidationError naming the first failing field.
func (ev *EchoValidator) Validate(i interface{}) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		return &apperr.ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: fmt.Sprintf("failed on %q", fe.Tag()),
		}
	}
	return &apperr.ValidationError{Message: err.Error()}
}

// Engine exposes the underlying validator for callers that validate outside a
// request, such as config loading.
func (ev *EchoValidator) Engine() *validator.Validate { return ev.v }

// ParamID reads a positive numeric path parameter.
func ParamID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(name, "invalid id %q", c.Param(name))
	}
	return uint(id), nil
}
