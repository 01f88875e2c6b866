package admission

// Phase is the user-visible stage of an admission attempt.
type Phase int

const (
	PhaseChecking Phase = iota
	PhaseOwner
	PhaseNotOwner
	PhasePending
	PhaseApprovedAwaitingCredential
	PhaseWaiting
	PhaseApproved
	PhaseDenied
	PhaseExpired
	PhaseError
	PhaseCheckError
)

var phaseNames = map[Phase]string{
	PhaseChecking:                   "checking",
	PhaseOwner:                      "owner",
	PhaseNotOwner:                   "not-owner",
	PhasePending:                    "pending",
	PhaseApprovedAwaitingCredential: "approved-awaiting-credential",
	PhaseWaiting:                    "waiting",
	PhaseApproved:                   "approved",
	PhaseDenied:                     "denied",
	PhaseExpired:                    "expired",
	PhaseError:                      "error",
	PhaseCheckError:                 "check-error",
}

var phaseMessages = map[Phase]string{
	PhaseChecking:                   "Checking participant status...",
	PhaseOwner:                      "Participant is the owner. Credential retrieved.",
	PhaseNotOwner:                   "Participant is not the owner. Checking approval status...",
	PhasePending:                    "Request is pending approval.",
	PhaseApprovedAwaitingCredential: "Request is approved.",
	PhaseWaiting:                    "Waiting for approval.",
	PhaseApproved:                   "Participant approved. Credential retrieved.",
	PhaseDenied:                     "Request denied. Please rejoin.",
	PhaseExpired:                    "Request expired.",
	PhaseError:                      "Error checking approval.",
	PhaseCheckError:                 "Error checking participant status.",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Message is the status text shown to the participant.
func (p Phase) Message() string {
	return phaseMessages[p]
}

// Terminal reports whether the approval loop has stopped in this phase.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseOwner, PhaseApproved, PhaseDenied, PhaseExpired, PhaseError, PhaseCheckError:
		return true
	}
	return false
}

// Admitted reports whether the phase carries a credential.
func (p Phase) Admitted() bool {
	return p == PhaseOwner || p == PhaseApproved
}
