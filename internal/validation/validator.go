package validation

import (
	"fmt"
	"reflect"
	"strings"

	validatorengine "github.com/go-playground/validator/v10"

	"ms-events/internal/models"
)

// Validator checks request DTOs against their `validate` struct tags.
type Validator struct {
	engine *validatorengine.Validate
}

func New() *Validator {
	engine := validatorengine.New()
	// report fields by their JSON name
	engine.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{engine: engine}
}

// ValidateStruct returns a VALIDATION_FAILED AppError with one detail per failing field.
func (v *Validator) ValidateStruct(data interface{}) error {
	err := v.engine.Struct(data)
	if err == nil {
		return nil
	}

	errs, ok := err.(validatorengine.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate request: %w", err)
	}

	details := make(map[string]string, len(errs))
	for _, e := range errs {
		details[fieldPath(e)] = describe(e)
	}
	return models.NewValidation("VALIDATION_FAILED", "request validation failed").WithDetails(details)
}

// fieldPath drops the root struct name from the namespace, e.g. "address.city".
func fieldPath(e validatorengine.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(e validatorengine.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "gtfield":
		return "must be after " + e.Param()
	case "oneof":
		return "must be one of " + e.Param()
	case "email":
		return "must be a valid email"
	default:
		return "failed on " + e.Tag()
	}
}
