package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jsamuelsen/esoteric-daily/internal/domain"
)

var (
	// ErrValidation wraps field-level failures from the validator.
	ErrValidation = errors.New("validation failed")

	// ErrBinding means the query string could not be decoded into the DTO.
	ErrBinding = errors.New("binding failed")
)

var validatorInstance = sync.OnceValue(newValidator)

// Validator returns the shared validator. Field names in its errors come
// from json tags, and the "datekey" tag accepts calendar dates.
func Validator() *validator.Validate {
	return validatorInstance()
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("datekey", isDateKey); err != nil {
		panic(err)
	}

	return v
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}

	return name
}

// isDateKey accepts YYYY-MM-DD calendar dates. An empty value passes so the
// tag composes with required.
func isDateKey(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}

	_, err := domain.ParseDate(value)

	return err == nil
}

// Validate runs struct validation on v.
func Validate(v any) error {
	if err := Validator().Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// BindQueryAndValidate decodes the query string into v and validates it.
func BindQueryAndValidate(c *gin.Context, v any) error {
	if err := c.ShouldBindQuery(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBinding, err)
	}

	return Validate(v)
}

// ValidationErrors maps each failing field to a readable message. Errors that
// did not come from the validator give an empty map.
func ValidationErrors(err error) map[string]string {
	out := make(map[string]string)

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return out
	}

	for _, fe := range fieldErrs {
		out[fe.Field()] = describe(fe)
	}

	return out
}

type messageFunc func(fe validator.FieldError) string

func fixed(msg string) messageFunc {
	return func(validator.FieldError) string { return msg }
}

func withParam(prefix string) messageFunc {
	return func(fe validator.FieldError) string { return prefix + fe.Param() }
}

// bound words min/max by kind: strings count characters.
func bound(prefix string) messageFunc {
	return func(fe validator.FieldError) string {
		msg := prefix + fe.Param()
		if fe.Kind() == reflect.String {
			msg += " characters"
		}

		return msg
	}
}

var messages = map[string]messageFunc{
	"required": fixed("this field is required"),
	"datekey":  fixed("must be a calendar date formatted as YYYY-MM-DD"),
	"min":      bound("must be at least "),
	"max":      bound("must be at most "),
	"gte":      withParam("must be greater than or equal to "),
	"lte":      withParam("must be less than or equal to "),
	"gt":       withParam("must be greater than "),
	"lt":       withParam("must be less than "),
	"oneof":    withParam("must be one of: "),
}

func describe(fe validator.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg(fe)
	}

	return "failed validation: " + fe.Tag()
}
