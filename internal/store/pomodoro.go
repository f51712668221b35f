package store

// PomodoroState returns the single session record; an absent collection
// yields the inactive zero state.
func (s *Store) PomodoroState() (PomodoroState, error) {
	var state PomodoroState
	if _, err := s.getDoc(colPomodoroState, &state); err != nil {
		return PomodoroState{}, err
	}
	return state, nil
}

// SavePomodoroState writes the session record back.
func (s *Store) SavePomodoroState(state PomodoroState) error {
	return s.setDoc(colPomodoroState, state)
}

// PomodoroStats returns the derived stats record. The history map is
// always non-nil.
func (s *Store) PomodoroStats() (PomodoroStats, error) {
	var stats PomodoroStats
	if _, err := s.getDoc(colPomodoroStats, &stats); err != nil {
		return PomodoroStats{}, err
	}
	if stats.History == nil {
		stats.History = map[string]DayStats{}
	}
	return stats, nil
}

// SavePomodoroStats writes the stats record back.
func (s *Store) SavePomodoroStats(stats PomodoroStats) error {
	return s.setDoc(colPomodoroStats, stats)
}
