package store

// Timers returns the timer collection keyed by id. An absent collection
// is an empty map.
func (s *Store) Timers() (map[string]Timer, error) {
	timers := map[string]Timer{}
	if _, err := s.getDoc(colTimers, &timers); err != nil {
		return nil, err
	}
	return timers, nil
}

// SaveTimers writes the timer collection back. Durable on return.
func (s *Store) SaveTimers(timers map[string]Timer) error {
	return s.setDoc(colTimers, timers)
}
