package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var sqlIdentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validate is the package-level validator instance. Field names in messages
// follow the koanf keys, so errors read like the YAML the user edits.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}

		return name
	})

	_ = v.RegisterValidation("alphanum_underscore", func(fl validator.FieldLevel) bool {
		return sqlIdentPattern.MatchString(fl.Field().String())
	})

	v.RegisterStructValidation(validateProvider, ProviderConfig{})

	return v
}

// validateProvider enforces the settings each provider kind needs.
func validateProvider(sl validator.StructLevel) {
	p, ok := sl.Current().Interface().(ProviderConfig)
	if !ok {
		return
	}

	switch p.Kind {
	case "gemini":
		if p.Gemini.APIKey == "" {
			sl.ReportError(p.Gemini.APIKey, "gemini.api_key", "APIKey", "required_for_kind", p.Kind)
		}
	case "http":
		if p.HTTP.BaseURL == "" {
			sl.ReportError(p.HTTP.BaseURL, "http.base_url", "BaseURL", "required_for_kind", p.Kind)
		} else if u, err := url.Parse(p.HTTP.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			sl.ReportError(p.HTTP.BaseURL, "http.base_url", "BaseURL", "url", "")
		}
	}
}

// Validate fails fast: neither binary starts with invalid config.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	return nil
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(msgs, "\n  "))
}

func formatFieldError(e validator.FieldError) string {
	field := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, e.Param())
	case "required_for_kind":
		return fmt.Sprintf("%s is required for provider kind %q", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return field + " must be a valid URL"
	case "timezone":
		return field + " must be an IANA time zone name"
	case "alphanum_underscore":
		return field + " must be a plain SQL identifier"
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}

// formatFieldPath drops the root struct name: "Config.server.port" becomes "server.port".
func formatFieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return strings.ToLower(namespace)
	}

	return strings.ToLower(rest)
}
