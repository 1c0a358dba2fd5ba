// Package audit defines the append-only audit log: entry model, the closed
// action-kind registry, query types, and the store contract. Entries are
// never mutated or deleted once appended.
package audit

import (
	"time"

	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
)

// Category classifies audit kinds by their primary purpose. Categories drive
// metrics labels and the diagnostic-exclusion rule: detection aggregates
// never read diagnostic entries, so the detector's own records cannot feed
// back into future detections.
type Category string

const (
	// CategorySecurity covers authentication and authorization activity.
	// These feed detection windows and SIEM-style review.
	CategorySecurity Category = "security"

	// CategoryActivity covers user-initiated platform actions such as
	// event registrations.
	CategoryActivity Category = "activity"

	// CategoryResource covers lifecycle changes to platform resources
	// (events and their metadata).
	CategoryResource Category = "resource"

	// CategoryDiagnostic covers entries this service appends about its own
	// evaluations. Excluded from every detection aggregate.
	CategoryDiagnostic Category = "diagnostic"
)

// Kind is a registered audit action kind. The registry is closed: appending
// an unregistered kind fails validation, and adding one means extending the
// table below.
type Kind string

const (
	KindLoginAttempted        Kind = "login_attempted"
	KindLoginSucceeded        Kind = "login_succeeded"
	KindLoginFailed           Kind = "login_failed"
	KindLogout                Kind = "logout"
	KindRegistrationSubmitted Kind = "registration_submitted"
	KindRegistrationCancelled Kind = "registration_cancelled"
	KindRoleChanged           Kind = "role_changed"
	KindTwoFactorEnabled      Kind = "twofactor_enabled"
	KindTwoFactorDisabled     Kind = "twofactor_disabled"
	KindEventCreated          Kind = "event_created"
	KindEventUpdated          Kind = "event_updated"
	KindEventDeleted          Kind = "event_deleted"
	KindPermissionDenied      Kind = "permission_denied"
	KindSystemError           Kind = "system_error"

	// Diagnostic kinds appended by this service about its own work.
	KindDetectionCompleted Kind = "detection_completed"
	KindGuardEvaluated     Kind = "guard_evaluated"
	KindTokenIssued        Kind = "token_issued"
)

// kindCategories is the closed registry. A kind absent from this table is
// not a valid kind.
var kindCategories = map[Kind]Category{
	KindLoginAttempted:        CategorySecurity,
	KindLoginSucceeded:        CategorySecurity,
	KindLoginFailed:           CategorySecurity,
	KindLogout:                CategorySecurity,
	KindRoleChanged:           CategorySecurity,
	KindTwoFactorEnabled:      CategorySecurity,
	KindTwoFactorDisabled:     CategorySecurity,
	KindPermissionDenied:      CategorySecurity,
	KindSystemError:           CategorySecurity,
	KindRegistrationSubmitted: CategoryActivity,
	KindRegistrationCancelled: CategoryActivity,
	KindEventCreated:          CategoryResource,
	KindEventUpdated:          CategoryResource,
	KindEventDeleted:          CategoryResource,
	KindDetectionCompleted:    CategoryDiagnostic,
	KindGuardEvaluated:        CategoryDiagnostic,
	KindTokenIssued:           CategoryDiagnostic,
}

// Valid reports whether the kind is registered.
func (k Kind) Valid() bool {
	_, ok := kindCategories[k]
	return ok
}

// Category returns the category for this kind. Unregistered kinds map to
// CategoryActivity, but Valid gates them out before any append.
func (k Kind) Category() Category {
	if cat, ok := kindCategories[k]; ok {
		return cat
	}
	return CategoryActivity
}

// Kinds returns all registered kinds in no particular order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindCategories))
	for k := range kindCategories {
		out = append(out, k)
	}
	return out
}

// ActorKind distinguishes who performed the recorded action.
type ActorKind string

const (
	ActorUser      ActorKind = "user"
	ActorSystem    ActorKind = "system"
	ActorAnonymous ActorKind = "anonymous"
)

// Valid reports whether the actor kind is one of the three known values.
func (k ActorKind) Valid() bool {
	switch k {
	case ActorUser, ActorSystem, ActorAnonymous:
		return true
	}
	return false
}

// Actor identifies who performed an action. AccountID is set only for user
// actors; system and anonymous actors carry no account reference.
type Actor struct {
	Kind        ActorKind
	AccountID   id.AccountID
	DisplayName string
	Role        string
}

// Validate enforces the actor invariants.
func (a Actor) Validate() error {
	if !a.Kind.Valid() {
		return dErrors.New(dErrors.CodeValidation, "actor kind must be user, system, or anonymous")
	}
	if a.Kind == ActorUser && a.AccountID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user actors require an account id")
	}
	if a.Kind != ActorUser && !a.AccountID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "only user actors may carry an account id")
	}
	return nil
}

// Entry is one immutable audit record. Ordering is by Timestamp with ties
// broken by insertion order.
type Entry struct {
	ID          id.EntryID
	Kind        Kind
	Actor       Actor
	SourceIP    string
	SourceAgent string
	Success     bool
	Details     Details
	RequestID   string
	Timestamp   time.Time
	RecordedAt  time.Time
}

// Category returns the category of the entry's kind.
func (e Entry) Category() Category {
	return e.Kind.Category()
}

// Validate checks the entry against the registry and actor invariants. A
// zero Timestamp is allowed here; the service defaults it to request time
// before appending.
func (e Entry) Validate() error {
	if !e.Kind.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown audit kind: "+string(e.Kind))
	}
	if err := e.Actor.Validate(); err != nil {
		return err
	}
	return nil
}
