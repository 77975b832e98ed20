// Package validator provides struct validation utilities with custom validators.
package validator

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/northstarhq/api/pkg/domain/feedback"
	"github.com/northstarhq/api/pkg/domain/keyresult"
	"github.com/northstarhq/api/pkg/domain/objective"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

// slugRegex validates slugs: lowercase letters, numbers, hyphens
// Must start and end with alphanumeric, no consecutive hyphens
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// cronParser matches the parser used by the cadence domain.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validator wraps the go-playground validator with custom validations.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return sb.String()
}

// New creates a new Validator with custom validators registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Tenant domain
	_ = v.RegisterValidation("slug", validateSlug)
	_ = v.RegisterValidation("tenant_role", validateTenantRole)
	_ = v.RegisterValidation("plan", validatePlan)

	// OKR domain
	_ = v.RegisterValidation("objective_status", validateObjectiveStatus)
	_ = v.RegisterValidation("keyresult_kind", validateKeyResultKind)
	_ = v.RegisterValidation("cron_expr", validateCronExpr)

	// Feedback domain
	_ = v.RegisterValidation("feedback_visibility", validateFeedbackVisibility)

	return &Validator{validate: v}
}

// Validate validates a struct and returns ValidationErrors if validation fails.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return err
	}

	result := make(ValidationErrors, 0, len(validationErrors))
	for _, e := range validationErrors {
		result = append(result, ValidationError{
			Field:   toSnakeCase(e.Field()),
			Message: formatErrorMessage(e),
		})
	}

	return result
}

// validateSlug validates that a string is a valid URL slug.
// Valid: lowercase letters, numbers, hyphens. Must start/end with alphanumeric.
// Examples: "my-team", "acme-corp", "team123"
func validateSlug(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return slugRegex.MatchString(value)
}

// validateTenantRole validates that a string is a valid tenant Role.
func validateTenantRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	_, ok := tenant.ParseRole(value)
	return ok
}

// validatePlan validates that a string is a valid billing Plan.
func validatePlan(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return tenant.Plan(value).IsValid()
}

// validateObjectiveStatus validates that a string is a valid objective Status.
func validateObjectiveStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return objective.Status(value).IsValid()
}

// validateKeyResultKind validates that a string is a valid key result Kind.
func validateKeyResultKind(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return keyresult.Kind(value).IsValid()
}

// validateCronExpr validates that a string parses as a cron expression.
func validateCronExpr(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	_, err := cronParser.Parse(value)
	return err == nil
}

// validateFeedbackVisibility validates that a string is a valid feedback Visibility.
func validateFeedbackVisibility(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return feedback.Visibility(value).IsValid()
}

// formatErrorMessage converts validation errors to human-readable messages.
func formatErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "slug":
		return "must be a valid slug (lowercase letters, numbers, hyphens only)"
	case "tenant_role":
		return "must be one of: owner, admin, member"
	case "plan":
		return fmt.Sprintf("must be one of: %s", formatPlans())
	case "objective_status":
		return "must be one of: draft, active, completed, archived"
	case "keyresult_kind":
		return "must be one of: metric, milestone"
	case "cron_expr":
		return "must be a valid cron expression"
	case "feedback_visibility":
		return "must be one of: public, private"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed on '%s' validation", e.Tag())
	}
}

// toSnakeCase converts PascalCase/camelCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

// formatPlans returns a comma-separated list of valid plans.
func formatPlans() string {
	plans := tenant.AllPlans()
	strs := make([]string, len(plans))
	for i, p := range plans {
		strs[i] = string(p)
	}
	return strings.Join(strs, ", ")
}
