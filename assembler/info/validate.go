package info

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(beanVariant, EnterpriseBeanInfo{})
	})
	return validate
}

// beanVariant checks that exactly the variant matching Kind is populated.
func beanVariant(sl validator.StructLevel) {
	b := sl.Current().Interface().(EnterpriseBeanInfo)
	if b.Session != nil && !b.Kind.IsSession() {
		sl.ReportError(b.Session, "Session", "Session", "variant", string(b.Kind))
	}
	if b.Entity != nil && !b.Kind.IsEntity() {
		sl.ReportError(b.Entity, "Entity", "Entity", "variant", string(b.Kind))
	}
	if b.MessageDriven != nil && b.Kind != MessageDriven {
		sl.ReportError(b.MessageDriven, "MessageDriven", "MessageDriven", "variant", string(b.Kind))
	}
}

// Validate checks a configuration for structural errors.
func Validate(cfg *Configuration) error {
	if cfg == nil {
		return errors.New("configuration is nil")
	}
	if err := structValidator().Struct(cfg); err != nil {
		return describe(err)
	}
	return nil
}

// ValidateApp checks one application.
func ValidateApp(app *AppInfo) error {
	if app == nil {
		return errors.New("application is nil")
	}
	if err := structValidator().Struct(app); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "variant":
			out = append(out, fmt.Errorf("%s: not allowed for bean kind %s", fe.Namespace(), fe.Param()))
		case "oneof":
			out = append(out, fmt.Errorf("%s: %q is not one of [%s]", fe.Namespace(), fe.Value(), fe.Param()))
		default:
			out = append(out, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.Join(out...)
}
