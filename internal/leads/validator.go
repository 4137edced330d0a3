package leads

import (
	"fmt"
	"strings"

	"inquiry-sync-workers/internal/common/errors"
	"inquiry-sync-workers/internal/common/insightly"
)

// Violation is one failed payload rule.
type Violation struct {
	Field    string
	Message  string
	Required bool
}

// ValidationError lists every violated rule of a lead.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Lead validation failed: %s", strings.Join(e.Violations, "; "))
}

func (e *ValidationError) ErrorCode() errors.ErrorCode {
	return errors.ErrCodeValidationFailed
}

// Check evaluates every rule and returns all violations.
func Check(lead *insightly.Lead) []Violation {
	if lead == nil {
		lead = &insightly.Lead{}
	}

	var out []Violation
	if strings.TrimSpace(lead.LastName) == "" {
		out = append(out, Violation{Field: "LAST_NAME", Message: "LAST_NAME is required", Required: true})
	}
	if lead.LeadSourceID == nil {
		out = append(out, Violation{Field: "LEAD_SOURCE_ID", Message: "LEAD_SOURCE_ID is recommended but missing"})
	}
	if lead.Email == "" && lead.Phone == "" && lead.Mobile == "" {
		out = append(out, Violation{
			Field:   "EMAIL",
			Message: "at least one contact method (EMAIL, PHONE or MOBILE) is recommended but missing",
		})
	}
	return out
}

// Validate fails when a required rule is violated. The error lists every
// violation, recommended ones included, so callers see the full problem set.
func Validate(lead *insightly.Lead) error {
	violations := Check(lead)

	failed := false
	messages := make([]string, 0, len(violations))
	for _, v := range violations {
		failed = failed || v.Required
		messages = append(messages, v.Message)
	}
	if !failed {
		return nil
	}
	return &ValidationError{Violations: messages}
}

// Warnings returns the messages of violated recommended rules.
func Warnings(lead *insightly.Lead) []string {
	var out []string
	for _, v := range Check(lead) {
		if !v.Required {
			out = append(out, v.Message)
		}
	}
	return out
}
