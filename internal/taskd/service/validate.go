package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		return domain.TaskStatus(fl.Field().String()).Valid()
	})
	return v
}

var messages = map[string]string{
	"required":    "%s is required",
	"email":       "%s must be a valid email address",
	"min":         "%s must be at least %s characters",
	"max":         "%s must be at most %s characters",
	"task_status": "%s must be one of TODO, IN_PROGRESS, DONE",
	"oneof":       "%s must be one of %s",
	"excludesall": "%s must not contain \"%s\"",
}

// Validate checks v's struct tags and returns an Invalid error carrying a
// message per JSON field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: KindInvalid, Err: err}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return &Error{Kind: KindInvalid, Reason: "validation failed", Fields: fields}
}

// fieldPath drops the struct name prefix: "SignUpInput.email" -> "email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if ok && (fe.Tag() == "min" || fe.Tag() == "max") {
		switch fe.Kind() {
		case reflect.Slice, reflect.Map:
			msg = strings.Replace(msg, "characters", "items", 1)
		case reflect.Int, reflect.Int64:
			msg = strings.Replace(msg, " characters", "", 1)
		}
	}
	if !ok {
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
	if strings.Count(msg, "%s") == 2 {
		return fmt.Sprintf(msg, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(msg, fe.Field())
}

