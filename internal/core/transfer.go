package core

// ApplyStageInvariant keeps DateCompleted consistent with Stage. It must run
// on every write path before the transfer is persisted.
//
// FINALIZED without a completion date gets today's date; an existing date is
// kept. Any other stage clears the completion date.
func (t *MemberTransfer) ApplyStageInvariant(today Date) {
	if t.Stage != StageFinalized {
		t.DateCompleted = nil
		return
	}
	if t.DateCompleted == nil {
		d := today
		t.DateCompleted = &d
	}
}
