package validator

import (
	"log"

	"github.com/go-playground/validator/v10"

	"scipedia/internal/models"
)

// registerCustomRules installs the domain-specific validation tags.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'is-file-kind': the attachment group an upload is filed under.
	mustRegister("is-file-kind", validateFileKind)
}

func validateFileKind(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		// empty is the job of 'required'
		return true
	}
	_, ok := models.ParseFileKind(value)
	return ok
}
