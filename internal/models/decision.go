package models

// DecisionState is the outcome of a login attempt.
type DecisionState string

const (
	DecisionAllowed           DecisionState = "allowed"
	DecisionDenied            DecisionState = "denied"
	DecisionBlocked           DecisionState = "blocked"
	DecisionChallengeRequired DecisionState = "challenge_required"
)

// AuthDecision is the ephemeral result returned to the web layer. It is never
// persisted by the core; for ChallengeRequired the caller carries PendingToken
// across the next request.
type AuthDecision struct {
	State  DecisionState
	Reason string

	// Account is set for Allowed and ChallengeRequired decisions.
	Account *Account

	// ChallengeRequired payload.
	PendingToken string
	Question     string

	// Blocked payload: seconds until the block window ends.
	RetryInSeconds int
}
