package app

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/RanitManik/lucide-note/internal/export"
	"github.com/go-playground/validator"
)

var slugRegexp = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type RequestValidator struct {
	validator *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	if err := v.RegisterValidation("slug", slugValidator); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("exportFormat", exportFormatValidator); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("document", documentValidator); err != nil {
		panic(err)
	}
	return &RequestValidator{v}
}

// Validate checks a request struct and reports every failed rule as a 422
// VALIDATION_ERROR.
func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validator.Struct(i)
	if err == nil {
		return nil
	}
	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	details := make([]map[string]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		details = append(details, map[string]string{"field": fe.Field(), "rule": fe.Tag()})
	}
	message := fieldErrors[0].Field() + " is invalid"
	if fieldErrors[0].Tag() == "required" {
		message = fieldErrors[0].Field() + " is required"
	}
	return validationError(message, details)
}

func slugValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return len(value) >= 2 && len(value) <= 48 && slugRegexp.MatchString(value)
}

func exportFormatValidator(fl validator.FieldLevel) bool {
	_, err := export.ParseFormat(fl.Field().String())
	return err == nil
}

// documentValidator accepts an absent document or a JSON object.
func documentValidator(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().(json.RawMessage)
	if !ok {
		return false
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return true
	}
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	return json.Valid(raw)
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type OrganizationInput struct {
	Slug string `json:"slug" validate:"required,slug"`
	Name string `json:"name" validate:"required,max=100"`
}

type InviteInput struct {
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"omitempty,oneof=admin member"`
	Password  string `json:"password" validate:"omitempty,min=8"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

type CreateNoteInput struct {
	Title   string          `json:"title" validate:"required,max=255"`
	Content json.RawMessage `json:"content" validate:"document"`
}

type UpdateNoteInput struct {
	Title   *string         `json:"title" validate:"omitempty,max=255"`
	Content json.RawMessage `json:"content" validate:"document"`
}

// ExportInput leaves includeStyles nil when the client omits it, which
// means a standalone page.
type ExportInput struct {
	Format        string `json:"format" validate:"required,exportFormat"`
	IncludeStyles *bool  `json:"includeStyles"`
	Minify        bool   `json:"minify"`
}

type CreateShareInput struct {
	IncludeCSS *bool   `json:"include_css"`
	ExpiresIn  *string `json:"expires_in"`
}

// UpdateShareInput keeps expires_in raw so an absent field (unchanged) can
// be told apart from null (cleared).
type UpdateShareInput struct {
	IsPublic   *bool           `json:"is_public"`
	IncludeCSS *bool           `json:"include_css"`
	ExpiresIn  json.RawMessage `json:"expires_in"`
}
