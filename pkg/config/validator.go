package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/robfig/cron/v3"
)

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, found := uni.GetTranslator("en")
	if !found {
		return nil, nil, fmt.Errorf("translator for en not found")
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.RegisterValidation("cronspec", validateCronSpec); err != nil {
		return nil, nil, fmt.Errorf("failed to register cronspec validation: %w", err)
	}
	if err := validate.RegisterTranslation("cronspec", trans,
		func(ut ut.Translator) error {
			return ut.Add("cronspec", "{0} must be a cron expression or descriptor such as @daily", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("cronspec", fe.Field())
			return t
		},
	); err != nil {
		return nil, nil, fmt.Errorf("failed to register cronspec translation: %w", err)
	}

	validate.RegisterStructValidation(validateCacheBackend, CacheConfig{})
	if err := validate.RegisterTranslation("backend_requires", trans,
		func(ut ut.Translator) error {
			return ut.Add("backend_requires", "{0} is required for the selected cache backend", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("backend_requires", fe.Field())
			return t
		},
	); err != nil {
		return nil, nil, fmt.Errorf("failed to register backend translation: %w", err)
	}

	return validate, trans, nil
}

// validateCronSpec accepts an empty schedule (purging disabled) or any
// standard five-field expression or descriptor.
func validateCronSpec(fl validator.FieldLevel) bool {
	spec := fl.Field().String()
	if spec == "" {
		return true
	}
	_, err := cron.ParseStandard(spec)
	return err == nil
}

func validateCacheBackend(sl validator.StructLevel) {
	c := sl.Current().Interface().(CacheConfig)
	switch c.Backend {
	case "redis":
		if c.Redis.Addr == "" {
			sl.ReportError(c.Redis.Addr, "addr", "Addr", "backend_requires", c.Backend)
		}
	case "sqlite", "mysql":
		if c.SQL.DSN == "" {
			sl.ReportError(c.SQL.DSN, "dsn", "DSN", "backend_requires", c.Backend)
		}
	}
}

func validateConfig(validate *validator.Validate, trans ut.Translator, cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
