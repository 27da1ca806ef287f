package moderation

// Action names a moderation operation.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionRemove  Action = "remove"
	ActionStar    Action = "star"
	ActionUnstar  Action = "unstar"
	ActionPublish Action = "publish"
)

// Outcome reports what an operation did.
type Outcome string

const (
	// OutcomeApplied means this call performed the transition.
	OutcomeApplied Outcome = "applied"
	// OutcomeAlreadyHandled means another actor got there first.
	OutcomeAlreadyHandled Outcome = "already_handled"
	// OutcomeNoop means a precondition did not hold; nothing was written.
	OutcomeNoop Outcome = "noop"
)

// Result is the explicit outcome of a moderation operation.
type Result struct {
	Action       Action
	Outcome      Outcome
	Message      string
	SuggestionID string
	LiveItemID   string
	StarID       string
	Starred      bool
}

func applied(action Action, msg string) Result {
	return Result{Action: action, Outcome: OutcomeApplied, Message: msg}
}

func alreadyHandled(action Action, msg string) Result {
	return Result{Action: action, Outcome: OutcomeAlreadyHandled, Message: msg}
}

func noop(action Action, msg string) Result {
	return Result{Action: action, Outcome: OutcomeNoop, Message: msg}
}
