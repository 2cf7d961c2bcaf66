// Package validator holds the declarative rule sets for the domain
// entities. Validation is pure: a validator takes one entity value and
// returns a structured result, in rule-declaration order, with no side
// effects.
package validator

// FieldError is a single violated rule on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Result is the outcome of validating one entity instance.
type Result struct {
	Errors []FieldError
}

// IsValid reports whether no rule was violated.
func (r Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Messages returns the human-readable messages in the order the rules
// were declared. Callers surface these verbatim to the user.
func (r Result) Messages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

func (r *Result) add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}
