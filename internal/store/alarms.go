package store

// Alarms returns the alarm collection keyed by id.
func (s *Store) Alarms() (map[string]Alarm, error) {
	alarms := map[string]Alarm{}
	if _, err := s.getDoc(colAlarms, &alarms); err != nil {
		return nil, err
	}
	return alarms, nil
}

// SaveAlarms writes the alarm collection back.
func (s *Store) SaveAlarms(alarms map[string]Alarm) error {
	return s.setDoc(colAlarms, alarms)
}
