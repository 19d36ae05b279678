package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// licensePattern accepts the state-board formats seen in practice: 5 to 15
// uppercase letters and digits, optionally dash-separated.
var licensePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{3,13}[A-Z0-9]$`)

// Register installs the custom binding validations used by request structs.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("license", validLicense)
}

func validLicense(fl validator.FieldLevel) bool {
	return licensePattern.MatchString(fl.Field().String())
}
