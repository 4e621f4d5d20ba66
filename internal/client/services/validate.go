package services

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sheharfix/civicsync/internal/common"
)

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationError turns the first validator failure into a
// *common.ValidationError naming the field, e.g. "Images[1].Data".
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := fe.StructNamespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return &common.ValidationError{Field: field, Tag: fe.Tag()}
}
