package handler

import (
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
)

// IssueRequest is the body of POST /tokens.
type IssueRequest struct {
	EventID   string `json:"event_id"`
	SubjectID string `json:"subject_id"`

	parsedEvent   id.EventID
	parsedSubject id.AccountID
}

// Validate checks the request and caches the parsed ids.
func (r *IssueRequest) Validate() error {
	event, err := id.ParseEventID(r.EventID)
	if err != nil {
		return err
	}
	subject, err := id.ParseAccountID(r.SubjectID)
	if err != nil {
		return err
	}
	r.parsedEvent = event
	r.parsedSubject = subject
	return nil
}

func (r *IssueRequest) Event() id.EventID {
	return r.parsedEvent
}

func (r *IssueRequest) Subject() id.AccountID {
	return r.parsedSubject
}

// VerifyRequest is the body of POST /tokens/verify.
type VerifyRequest struct {
	Token     string `json:"token"`
	EventID   string `json:"event_id"`
	SubjectID string `json:"subject_id"`

	parsedEvent   id.EventID
	parsedSubject id.AccountID
}

// Validate checks the request and caches the parsed ids.
func (r *VerifyRequest) Validate() error {
	if r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	event, err := id.ParseEventID(r.EventID)
	if err != nil {
		return err
	}
	subject, err := id.ParseAccountID(r.SubjectID)
	if err != nil {
		return err
	}
	r.parsedEvent = event
	r.parsedSubject = subject
	return nil
}

func (r *VerifyRequest) Event() id.EventID {
	return r.parsedEvent
}

func (r *VerifyRequest) Subject() id.AccountID {
	return r.parsedSubject
}
