package dialogue

// ConversationRecord is the analytics export of one conversation. Field names and
// enum spellings are consumed downstream and must not change.
type ConversationRecord struct {
	ConversationID     string   `json:"conversation_id"`
	UserID             string   `json:"user_id"`
	CurrentPhase       string   `json:"current_phase"`
	QualificationScore int      `json:"qualification_score"`
	DetectedSignals    []string `json:"detected_signals"`
	MessageCount       int      `json:"message_count"`
	PropertiesShown    int      `json:"properties_shown"`
	MessageHistory     []Turn   `json:"message_history"`
}

// Export builds the analytics record for a conversation.
func Export(state *ConversationState) ConversationRecord {
	if state == nil {
		return ConversationRecord{DetectedSignals: []string{}, MessageHistory: []Turn{}}
	}
	signals := make([]string, 0, len(state.Signals))
	for _, s := range state.Signals {
		signals = append(signals, string(s))
	}
	history := append([]Turn{}, state.Turns...)
	return ConversationRecord{
		ConversationID:     state.ID,
		UserID:             state.Facts.UserID,
		CurrentPhase:       string(state.Phase),
		QualificationScore: state.QualificationScore,
		DetectedSignals:    signals,
		MessageCount:       len(state.Turns),
		PropertiesShown:    len(state.PropertiesShown),
		MessageHistory:     history,
	}
}
