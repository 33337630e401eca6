package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v *validator.Validate

var asciiEmailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)

func init() {
	v = validator.New()
	_ = v.RegisterValidation("ascii_email", func(fl validator.FieldLevel) bool {
		return asciiEmailRe.MatchString(fl.Field().String())
	})
}

func Instance() *validator.Validate {
	return v
}

func Validate(i any) map[string]string {
	if err := v.Struct(i); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			out := make(map[string]string)
			for _, e := range errs {
				field := e.Namespace()
				if i := strings.Index(field, "."); i >= 0 {
					field = field[i+1:]
				}
				out[field] = mapTagToCode(e.Tag())
			}
			return out
		}
		return map[string]string{"_error": "validation_failed"}
	}
	return nil
}
