package lib

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps validator/v10 with the custom tags used by this module. It
// satisfies gin's binding.StructValidator so request binding and config
// loading share one rule set.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("endpoint_id", validateEndpointID)
	_ = v.RegisterValidation("endpoint_address", validateEndpointAddress)
	return &Validator{validate: v}
}

func (v *Validator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	return v.validate.Struct(obj)
}

func (v *Validator) Engine() any {
	return v.validate
}

func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// endpoint ids end up as keys in id=address arguments
func validateEndpointID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return id != "" && !strings.ContainsAny(id, "= \t\n")
}

func validateEndpointAddress(fl validator.FieldLevel) bool {
	address := fl.Field().String()
	if command, ok := strings.CutPrefix(address, "stdio:"); ok {
		return strings.TrimSpace(command) != ""
	}
	u, err := url.Parse(address)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
