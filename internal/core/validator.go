package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"clima/internal/types"
)

// Validator wraps go-playground/validator and maps the first failing field
// to an AppError.
//
// Request structs may carry two extra struct tags on a validated field:
// `code` selects the ErrorCode (default validation_failed) and `message`
// overrides the generated client message.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator that reports fields by their json name.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates s and returns nil or a *types.AppError with a 4xx
// code. A misuse of the validator itself (non-struct input, bad tag) is an
// internal error.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		v.logger.Error("validator misuse", "error", err, "type", fmt.Sprintf("%T", s))
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation could not run", err)
	}

	fe := verrs[0]
	code := types.ErrCodeValidationFailed
	message := fmt.Sprintf("field %s failed the %s rule", fe.Field(), fe.Tag())

	if sf, ok := structField(s, fe.StructField()); ok {
		if c := sf.Tag.Get("code"); c != "" {
			code = types.ErrorCode(c)
		}
		if m := sf.Tag.Get("message"); m != "" {
			message = m
		}
	}

	details := map[string]any{
		"field": fe.Field(),
		"rule":  fe.Tag(),
	}
	if fe.Param() != "" {
		details["param"] = fe.Param()
	}

	return types.NewAppErrorWithDetails(code, message, err, details)
}

// structField looks up a top-level field of s, which may be a pointer.
func structField(s any, name string) (reflect.StructField, bool) {
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}
	return t.FieldByName(name)
}
