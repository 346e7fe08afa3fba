package v1

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apierrors "github.com/hrygo/ispkb/server/internal/errors"
)

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: v}
}

// Validate implements echo.Validator.
func (r *requestValidator) Validate(i any) error {
	err := r.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return apierrors.InvalidArgument("invalid request")
	}
	fe := fieldErrors[0]
	return apierrors.InvalidArgument(describeFieldError(fe)).WithContext("field", fe.Field())
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// bind decodes the request body into v and validates it.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apierrors.InvalidArgument("invalid request body")
	}
	return c.Validate(v)
}

// queryInt reads an optional integer query parameter, returning def when absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	value := def
	if err := echo.QueryParamsBinder(c).Int(name, &value).BindError(); err != nil {
		return 0, apierrors.InvalidArgument(name + " must be an integer").WithContext(name, c.QueryParam(name))
	}
	return value, nil
}

// pageParams reads skip and limit. Limit defaults to 100 and is capped at 1000.
func pageParams(c echo.Context) (skip, limit int, err error) {
	if skip, err = queryInt(c, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryInt(c, "limit", 100); err != nil {
		return 0, 0, err
	}
	if skip < 0 {
		return 0, 0, apierrors.InvalidArgument("skip must not be negative").WithContext("skip", skip)
	}
	if limit < 1 || limit > 1000 {
		return 0, 0, apierrors.InvalidArgument("limit must be between 1 and 1000").WithContext("limit", limit)
	}
	return skip, limit, nil
}
