package store

// Reminders returns the reminder collection keyed by id.
func (s *Store) Reminders() (map[string]Reminder, error) {
	reminders := map[string]Reminder{}
	if _, err := s.getDoc(colReminders, &reminders); err != nil {
		return nil, err
	}
	return reminders, nil
}

// SaveReminders writes the reminder collection back.
func (s *Store) SaveReminders(reminders map[string]Reminder) error {
	return s.setDoc(colReminders, reminders)
}
