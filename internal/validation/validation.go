// Package validation checks submitted post forms against a fixed rule list.
//
// Every rule is evaluated, so the caller gets all field errors at once.
package validation

import (
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/SergeyParamoshkin/posts/internal/model"
)

// FieldError is a single violated rule.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Rule pairs a field with the predicate it must satisfy.
type Rule struct {
	Field   string
	Valid   func(model.Form) bool
	Message string
}

// PostRules are the rules applied to post create and edit forms.
var PostRules = []Rule{
	{Field: "title", Valid: func(f model.Form) bool { return present(f.Title) }, Message: "Title required"},
	{Field: "body", Valid: func(f model.Form) bool { return present(f.Body) }, Message: "Body required"},
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Validate runs PostRules against f.
func Validate(f model.Form) error {
	return Check(f, PostRules)
}

// Check runs every rule and returns a *multierror.Error holding one
// *FieldError per violation, or nil.
func Check(f model.Form, rules []Rule) error {
	var result *multierror.Error

	for _, r := range rules {
		if !r.Valid(f) {
			result = multierror.Append(result, &FieldError{Field: r.Field, Message: r.Message})
		}
	}

	return result.ErrorOrNil()
}

// Fields flattens a validation error into field -> message. Errors that
// are not field errors are ignored. The first message for a field wins.
func Fields(err error) map[string]string {
	fields := map[string]string{}
	if err == nil {
		return fields
	}

	var errs []error
	if merr, ok := err.(*multierror.Error); ok {
		errs = merr.Errors
	} else {
		errs = []error{err}
	}

	for _, e := range errs {
		fe, ok := e.(*FieldError)
		if !ok {
			continue
		}
		if _, seen := fields[fe.Field]; !seen {
			fields[fe.Field] = fe.Message
		}
	}

	return fields
}
