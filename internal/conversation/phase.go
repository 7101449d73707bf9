package conversation

// Phase is the single source of truth for what the chat screen offers.
//
//	Active ──contains_recommendations──▶ AwaitingEmailOptIn
//	AwaitingEmailOptIn ──yes──▶ AwaitingEmailAddress
//	AwaitingEmailOptIn ──no──▶ Closed
//	AwaitingEmailAddress ──submit / dismiss──▶ Closed
//	AwaitingEmailAddress ──recommendations missing──▶ Active
//	any ──reset──▶ Active
type Phase string

const (
	PhaseActive               Phase = "active"
	PhaseAwaitingEmailOptIn   Phase = "awaiting_email_opt_in"
	PhaseAwaitingEmailAddress Phase = "awaiting_email_address"
	PhaseClosed               Phase = "closed"
)

// AcceptsFreeText reports whether typed input may be sent in this phase.
func (p Phase) AcceptsFreeText() bool {
	return p == PhaseActive || p == ""
}

func (p Phase) String() string {
	if p == "" {
		return string(PhaseActive)
	}
	return string(p)
}
