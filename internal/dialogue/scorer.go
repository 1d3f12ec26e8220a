package dialogue

// Qualification score weights.
const (
	pointsBudget        = 30
	pointsLocation      = 20
	pointsRequirements  = 20
	pointsTimeline      = 15
	pointsDecisionMaker = 15
	pointsPerSignal     = 5
	maxSignalBonus      = 20
	maxScore            = 100

	// CloseDealScore is the qualification score at which closing is attempted.
	CloseDealScore = 70
	// CloseDealSignals is the cumulative signal count at which closing is attempted.
	CloseDealSignals = 2
)

// Score computes the 0-100 lead qualification score from scratch.
// No fact subtracts points, so the result only depends on what is known now.
func Score(state *ConversationState) int {
	if state == nil {
		return 0
	}
	f := state.Facts
	score := 0
	if f.BudgetMax != nil {
		score += pointsBudget
	}
	if f.Location != nil && *f.Location != "" {
		score += pointsLocation
	}
	if f.Bedrooms != nil || f.Bathrooms != nil || f.PropertyType != nil {
		score += pointsRequirements
	}
	if f.Timeline != nil && *f.Timeline != "" {
		score += pointsTimeline
	}
	if f.DecisionMaker {
		score += pointsDecisionMaker
	}

	bonus := pointsPerSignal * len(state.Signals)
	if bonus > maxSignalBonus {
		bonus = maxSignalBonus
	}
	score += bonus

	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ShouldCloseDeal reports whether the engine should attempt to close: a high
// score, repeated buying signals, or any high-intent signal each suffice.
func ShouldCloseDeal(state *ConversationState) bool {
	if state == nil {
		return false
	}
	if state.QualificationScore >= CloseDealScore {
		return true
	}
	if len(state.Signals) >= CloseDealSignals {
		return true
	}
	return state.HasSignal(SignalViewingRequest) || state.HasSignal(SignalPaperworkInquiry)
}
