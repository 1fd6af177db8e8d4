package audit

// EventCategory classifies audit events by purpose so log pipelines can route
// and retain them differently.
type EventCategory string

const (
	// CategorySecurity covers authentication outcomes and credential changes.
	CategorySecurity EventCategory = "security"
	// CategoryDomain covers state changes users care about: groups, friendships, expenses.
	CategoryDomain EventCategory = "domain"
	// CategoryOperations covers routine traffic useful for debugging.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	// Auth events
	EventUserSignedUp           AuditEvent = "user_signed_up"
	EventUserLoggedIn           AuditEvent = "user_logged_in"
	EventLoginFailed            AuditEvent = "login_failed"
	EventUserLoggedOut          AuditEvent = "user_logged_out"
	EventVerificationCodeIssued AuditEvent = "verification_code_issued"
	EventEmailVerified          AuditEvent = "email_verified"
	EventPasswordResetRequested AuditEvent = "password_reset_requested"
	EventPasswordReset          AuditEvent = "password_reset"
	EventProfileUpdated         AuditEvent = "profile_updated"
	EventAuthLockoutTriggered   AuditEvent = "auth_lockout_triggered"

	// Expense events
	EventExpenseCreated AuditEvent = "expense_created"
	EventExpenseUpdated AuditEvent = "expense_updated"
	EventExpenseDeleted AuditEvent = "expense_deleted"

	// Friendship events
	EventFriendRequestSent      AuditEvent = "friend_request_sent"
	EventFriendshipTransitioned AuditEvent = "friendship_transitioned"

	// Group events
	EventGroupCreated           AuditEvent = "group_created"
	EventGroupUpdated           AuditEvent = "group_updated"
	EventGroupDeleted           AuditEvent = "group_deleted"
	EventMemberInvited          AuditEvent = "group_member_invited"
	EventMembershipTransitioned AuditEvent = "group_membership_transitioned"
	EventOwnershipTransferred   AuditEvent = "group_ownership_transferred"

	// Notification delivery
	EventOutboxPublished AuditEvent = "outbox_published"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserSignedUp:           CategorySecurity,
	EventUserLoggedIn:           CategorySecurity,
	EventLoginFailed:            CategorySecurity,
	EventUserLoggedOut:          CategorySecurity,
	EventVerificationCodeIssued: CategorySecurity,
	EventEmailVerified:          CategorySecurity,
	EventPasswordResetRequested: CategorySecurity,
	EventPasswordReset:          CategorySecurity,
	EventAuthLockoutTriggered:   CategorySecurity,
	EventOutboxPublished:        CategoryOperations,
}

// Category returns the event's category. Events without an explicit entry are domain events.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryDomain
}
