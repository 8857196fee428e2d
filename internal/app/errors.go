package app

import "fmt"

// DomainError is a failure the HTTP layer can serve as-is: Status is
// the response code and Code the machine-readable string clients branch
// on (INVALID_CREDENTIALS, CONFIRMATION_FAILED, ...). Details carries
// extras such as the retryable flag on signing failures.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
