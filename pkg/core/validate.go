package core

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxTextLength is the maximum number of characters in a constraint's trimmed text.
const MaxTextLength = 10000

var categoryPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// fieldValidate holds the rule set used by Validate.
// Initialized in init() with the custom constraint rules.
var fieldValidate *validator.Validate

func init() {
	fieldValidate = validator.New()

	_ = fieldValidate.RegisterValidation("constraintid", func(fl validator.FieldLevel) bool {
		return ValidID(fl.Field().String())
	})
	_ = fieldValidate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return ValidCategory(fl.Field().String())
	})
}

// ValidCategory reports whether name is usable as a category (and directory) name.
func ValidCategory(name string) bool {
	return categoryPattern.MatchString(name)
}

// rule is one structural check. Rules run in order and the first failure wins.
type rule struct {
	tag   string
	value func(c Constraint) any
	fail  func(c Constraint) error
}

func reason(msg string) func(Constraint) error {
	return func(Constraint) error { return &ValidationError{Reason: msg} }
}

var rules = []rule{
	{
		tag:   "gte=1",
		value: func(c Constraint) any { return c.Version },
		fail:  reason("version must be >= 1"),
	},
	{
		tag:   "constraintid",
		value: func(c Constraint) any { return c.ID },
		fail:  func(c Constraint) error { return &InvalidIDError{ID: c.ID} },
	},
	{
		tag:   "category",
		value: func(c Constraint) any { return c.Category },
		fail:  reason("category must be lowercase alphanumeric with hyphens only"),
	},
	{
		tag:   "required",
		value: func(c Constraint) any { return strings.TrimSpace(c.Text) },
		fail:  reason("text cannot be empty"),
	},
	{
		// max counts runes for strings.
		tag:   "max=10000",
		value: func(c Constraint) any { return strings.TrimSpace(c.Text) },
		fail:  reason("text cannot exceed 10,000 characters"),
	},
	{
		tag:   "required",
		value: func(c Constraint) any { return strings.TrimSpace(c.Author) },
		fail:  reason("author cannot be empty"),
	},
	{
		tag:   "",
		value: func(c Constraint) any { return !c.CreatedAt.After(c.UpdatedAt) },
		fail:  reason("created timestamp cannot be after updated timestamp"),
	},
	{
		tag:   "omitempty,oneof=P1 P2 P3",
		value: func(c Constraint) any { return string(c.Priority) },
		fail:  reason("priority must be P1, P2, or P3"),
	},
}

// Validate checks the structural contract of c and returns the first violation.
// It has no side effects.
func Validate(c Constraint) error {
	for _, r := range rules {
		if !r.check(c) {
			return r.fail(c)
		}
	}
	return nil
}

func (r rule) check(c Constraint) bool {
	v := r.value(c)
	if r.tag == "" {
		ok, _ := v.(bool)
		return ok
	}
	return fieldValidate.Var(v, r.tag) == nil
}
