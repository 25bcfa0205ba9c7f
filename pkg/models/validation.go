package models

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	slugPattern       = regexp.MustCompile(`^[a-z0-9-]+$`)
	usernamePattern   = regexp.MustCompile(`^[a-z0-9_-]+$`)
	promptNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// RegisterValidations adds the slug, username and promptname tags used by the models.
func RegisterValidations(v *validator.Validate) error {
	rules := map[string]*regexp.Regexp{
		"slug":       slugPattern,
		"username":   usernamePattern,
		"promptname": promptNamePattern,
	}

	for tag, pattern := range rules {
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return pattern.MatchString(fl.Field().String())
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// NewValidator returns a validator with the model rules registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}

	return v
}
