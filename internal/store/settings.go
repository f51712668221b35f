package store

const settingsVersion = 1

// DefaultSettings returns a fully-populated Settings value.
func DefaultSettings() Settings {
	return Settings{
		Version:        settingsVersion,
		SnoozeDuration: 5,
		TimeFormat24H:  true,

		TimerSound:  "alarm.mp3",
		TimerVolume: 100,

		PomodoroSound:                  "alarm.mp3",
		PomodoroVolume:                 100,
		PomodoroWorkMinutes:            25,
		PomodoroBreakMinutes:           5,
		PomodoroLongBreakMinutes:       15,
		PomodoroSessionsUntilLongBreak: 4,

		OverlayMaxItems:      5,
		OverlayWindowMinutes: 12 * 60,
	}
}

// UserSettings loads the persisted settings merged over defaults and
// migrated to the current version. Callers always see a fully-populated
// struct; the merge happens once here, not on every read of a field.
func (s *Store) UserSettings() (Settings, error) {
	settings := DefaultSettings()
	found, err := s.getDoc(colUserSettings, &settings)
	if err != nil {
		return Settings{}, err
	}
	if found {
		settings = migrateSettings(settings)
	}
	return settings, nil
}

// SaveUserSettings writes the settings back at the current version.
// Scheduling-critical durations are floored first so a partial update
// can never persist a zero the pomodoro loop would divide by.
func (s *Store) SaveUserSettings(settings Settings) error {
	settings = floorSettings(settings)
	settings.Version = settingsVersion
	return s.setDoc(colUserSettings, settings)
}

// migrateSettings upgrades a loaded settings payload to the current
// version. Unknown fields were already filled from defaults by the
// merge in UserSettings.
func migrateSettings(settings Settings) Settings {
	if settings.Version < 1 {
		// Pre-versioned payloads carried durations that could be zero
		// when written by partial updates; restore sane floors.
		settings = floorSettings(settings)
	}
	settings.Version = settingsVersion
	return settings
}

// floorSettings restores defaults on the fields that must stay
// positive for the scheduler.
func floorSettings(settings Settings) Settings {
	defaults := DefaultSettings()
	if settings.PomodoroWorkMinutes <= 0 {
		settings.PomodoroWorkMinutes = defaults.PomodoroWorkMinutes
	}
	if settings.PomodoroBreakMinutes <= 0 {
		settings.PomodoroBreakMinutes = defaults.PomodoroBreakMinutes
	}
	if settings.PomodoroLongBreakMinutes <= 0 {
		settings.PomodoroLongBreakMinutes = defaults.PomodoroLongBreakMinutes
	}
	if settings.PomodoroSessionsUntilLongBreak <= 0 {
		settings.PomodoroSessionsUntilLongBreak = defaults.PomodoroSessionsUntilLongBreak
	}
	return settings
}
