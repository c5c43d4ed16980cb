package periodization

// Position locates the upcoming session within the cycle.
type Position struct {
	// Occurrences is the number of training days on or after the cycle start date.
	Occurrences int
	// WeekIndex is the 0-based week of the upcoming session.
	WeekIndex int
	// CycleNumber is 1-based.
	CycleNumber int
}

// Locate resolves the cycle position of the next session. Days before cycleStartDate never count and an
// unset start date is a fresh start. history must be sorted by date.
func (p Plan) Locate(history History, cycleStartDate string) Position {
	if cycleStartDate == "" {
		return Position{Occurrences: 0, WeekIndex: 0, CycleNumber: 1}
	}
	n := len(history.Since(cycleStartDate))
	length := p.CycleLength()
	return Position{
		Occurrences: n,
		WeekIndex:   n % length,
		CycleNumber: n/length + 1,
	}
}
