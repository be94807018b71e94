package locations

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the "postalcode" binding tag to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return v.RegisterValidation("postalcode", validatePostalCode)
}

func validatePostalCode(fl validator.FieldLevel) bool {
	_, err := NormalizePostalCode(fl.Field().String())
	return err == nil
}
