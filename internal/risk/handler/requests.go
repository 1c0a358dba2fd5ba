package handler

import (
	id "custos/pkg/domain"
)

// AssessRequest is the body of POST /risk/assessments.
type AssessRequest struct {
	SubjectID string `json:"subject_id"`

	parsedSubject id.AccountID
}

// Validate checks the request and caches the parsed subject.
func (r *AssessRequest) Validate() error {
	subject, err := id.ParseAccountID(r.SubjectID)
	if err != nil {
		return err
	}
	r.parsedSubject = subject
	return nil
}

// Subject returns the parsed subject id of a validated request.
func (r *AssessRequest) Subject() id.AccountID {
	return r.parsedSubject
}
