// Package audit captures the portal's compliance, security, and operational
// event trail. Domain code emits events through a Publisher; stores and
// sinks fan them out.
package audit

import (
	"time"

	id "legitid/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	// Examples: account registration, identity lifecycle, verification
	// decisions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and
	// forensics. Examples: failed logins, admin overrides.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	Decision  string
	Reason    string
	// Enrichment fields for trail completeness.
	Email     string // user email when available
	RequestID string // correlation ID from the HTTP request context
	IP        string // client IP for security forensics
	Device    string // parsed device description from the User-Agent
	// ActorID tracks who performed the action when different from UserID,
	// e.g. an admin acting on a user's identity.
	ActorID string
}

type AuditEvent string

const (
	// Auth events
	EventUserRegistered AuditEvent = "user_registered"
	EventUserLogin      AuditEvent = "user_login"
	EventLoginFailed    AuditEvent = "login_failed"
	EventUserLogout     AuditEvent = "user_logout"

	// Identity events
	EventIdentityCreated       AuditEvent = "identity_created"
	EventIdentityUpdated       AuditEvent = "identity_updated"
	EventIdentityStatusChanged AuditEvent = "identity_status_changed"

	// Verification events
	EventVerificationRequested AuditEvent = "verification_requested"
	EventVerificationResponded AuditEvent = "verification_responded"

	// Chain events
	EventChainRegistered AuditEvent = "chain_identity_registered"

	// Admin events
	EventAdminStatusOverride AuditEvent = "admin_status_override"
)

// eventCategories maps each audit event to its category.
// Compliance: legal/regulatory significance, long retention required.
// Security: security monitoring and alerting.
// Operations: debugging and visibility, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered:        CategoryCompliance,
	EventIdentityCreated:       CategoryCompliance,
	EventIdentityUpdated:       CategoryCompliance,
	EventIdentityStatusChanged: CategoryCompliance,
	EventVerificationRequested: CategoryCompliance,
	EventVerificationResponded: CategoryCompliance,

	EventLoginFailed:         CategorySecurity,
	EventAdminStatusOverride: CategorySecurity,

	EventUserLogin:       CategoryOperations,
	EventUserLogout:      CategoryOperations,
	EventChainRegistered: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
