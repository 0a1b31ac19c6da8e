package domain

import "time"

// PlanType identifies a purchasable VIP plan. The set is closed; the
// checkout initiator resolves each plan to a server-side price id and
// never trusts client-provided price ids.
type PlanType string

const (
	PlanMonthly  PlanType = "monthly"
	PlanAnnual   PlanType = "annual"
	PlanLifetime PlanType = "lifetime"
)

// LifetimeExpiration is the expiration date stored for one-time lifetime
// purchases. Every live entitlement carries an expiration date, so
// lifetime buyers get one far enough out to never lapse.
var LifetimeExpiration = time.Date(2999, time.January, 1, 0, 0, 0, 0, time.UTC)

// Valid reports whether p is one of the known plan types.
func (p PlanType) Valid() bool {
	switch p {
	case PlanMonthly, PlanAnnual, PlanLifetime:
		return true
	}
	return false
}

// Recurring reports whether the plan is billed as a recurring
// subscription rather than a one-time payment.
func (p PlanType) Recurring() bool {
	return p == PlanMonthly || p == PlanAnnual
}
