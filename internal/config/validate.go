package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/verte-zerg/ojspy/internal/model"
	"github.com/verte-zerg/ojspy/internal/scoring"
)

// ConfigError reports invalid operator input. It is raised before any
// network traffic.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

var validate = validator.New()

// ValidateRunConfig checks struct rules and the grade ratio.
func ValidateRunConfig(cfg model.RunConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ConfigError{Field: fe.Field(), Reason: describe(fe)}
		}
		return &ConfigError{Reason: err.Error()}
	}
	if cfg.Ratio != nil {
		if err := scoring.ValidateRatio(*cfg.Ratio); err != nil {
			return &ConfigError{Field: "Ratio", Reason: err.Error()}
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	tag := fe.Tag()
	if strings.HasPrefix(tag, "endswith") {
		return fmt.Sprintf("must end with .xlsx or .csv, got %q", fe.Value())
	}
	switch tag {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "url":
		return fmt.Sprintf("must be a URL, got %q", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", tag)
	}
}

// ResolveMode picks the aggregation mode from the two exclusive switches,
// falling back to the configured default when neither is set.
func ResolveMode(flat, grouped bool, configured string) (string, error) {
	switch {
	case flat && grouped:
		return "", &ConfigError{Field: "Mode", Reason: "choose exactly one of flat or grouped"}
	case flat:
		return scoring.ModeFlat.String(), nil
	case grouped:
		return scoring.ModeGrouped.String(), nil
	}
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return "", &ConfigError{Field: "Mode", Reason: "choose exactly one of flat or grouped"}
	}
	mode, err := scoring.ParseMode(configured)
	if err != nil {
		return "", &ConfigError{Field: "Mode", Reason: err.Error()}
	}
	return mode.String(), nil
}
