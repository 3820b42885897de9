package store

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// RecipeFields are the user-editable text fields of a recipe.
type RecipeFields struct {
	Name         string `form:"name" validate:"required,max=255"`
	Ingredients  string `form:"ingredients" validate:"required"`
	Instructions string `form:"instructions" validate:"required"`
}

// ValidationError lists the form fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// Clean trims surrounding whitespace and validates the result.
func (f RecipeFields) Clean() (RecipeFields, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Ingredients = strings.TrimSpace(f.Ingredients)
	f.Instructions = strings.TrimSpace(f.Instructions)
	if err := validate.Struct(f); err != nil {
		return f, toValidationError(err)
	}
	return f, nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fe.Field())
	}
	return out
}
