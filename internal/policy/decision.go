// ABOUTME: Admission decision enum returned by the policy engine
// ABOUTME: One verdict per (account, event) pair, first match wins

package policy

// Decision is the policy engine's verdict for one (account, event) pair.
type Decision string

// Possible admission decisions, in evaluation order.
// DecisionRejectInvalidSignature covers both a signature that fails
// verification and an event carrying none at all.
const (
	DecisionAdmit                  Decision = "ADMIT"
	DecisionRejectInactive         Decision = "REJECT_INACTIVE"
	DecisionRejectBlocked          Decision = "REJECT_BLOCKED"
	DecisionRejectPaymentRequired  Decision = "REJECT_PAYMENT_REQUIRED"
	DecisionRejectAuthRequired     Decision = "REJECT_AUTH_REQUIRED"
	DecisionRejectRateLimited      Decision = "REJECT_RATE_LIMITED"
	DecisionRejectInvalidSignature Decision = "REJECT_INVALID_SIGNATURE"
	DecisionRejectCreatedAt        Decision = "REJECT_CREATED_AT"
	DecisionRejectStorageExceeded  Decision = "REJECT_STORAGE_EXCEEDED"
)

// Admitted reports whether the decision lets the event through.
func (d Decision) Admitted() bool {
	return d == DecisionAdmit
}
