package core

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateNote checks the note's structural constraints before it reaches a
// backend. Violations surface as CodeValidation, which is never retried.
func ValidateNote(n Note) error {
	if err := validate.Struct(n); err != nil {
		return E(CodeValidation, "", describeValidation(err), err)
	}
	return nil
}

// ValidateNotebook checks the notebook's structural constraints.
func ValidateNotebook(b Notebook) error {
	if err := validate.Struct(b); err != nil {
		return E(CodeValidation, "", describeValidation(err), err)
	}
	return nil
}

func describeValidation(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "invalid entity"
	}
	fe := errs[0]
	return fmt.Sprintf("field %s failed %q validation", fe.Field(), fe.Tag())
}
