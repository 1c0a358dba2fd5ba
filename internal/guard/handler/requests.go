package handler

import (
	id "custos/pkg/domain"
)

// CheckRequest is the body of POST /guard/registrations.
type CheckRequest struct {
	SubjectID string `json:"subject_id"`
	EventID   string `json:"event_id"`

	parsedSubject id.AccountID
	parsedEvent   id.EventID
}

// Validate checks the request and caches the parsed ids.
func (r *CheckRequest) Validate() error {
	subject, err := id.ParseAccountID(r.SubjectID)
	if err != nil {
		return err
	}
	event, err := id.ParseEventID(r.EventID)
	if err != nil {
		return err
	}
	r.parsedSubject = subject
	r.parsedEvent = event
	return nil
}

func (r *CheckRequest) Subject() id.AccountID {
	return r.parsedSubject
}

func (r *CheckRequest) Event() id.EventID {
	return r.parsedEvent
}
