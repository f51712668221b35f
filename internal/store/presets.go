package store

// DefaultPresets are seeded when the presets collection is absent.
func DefaultPresets() []Preset {
	return []Preset{
		{ID: "preset-5", Seconds: 300, Label: "5 minutes"},
		{ID: "preset-10", Seconds: 600, Label: "10 minutes"},
		{ID: "preset-15", Seconds: 900, Label: "15 minutes"},
		{ID: "preset-30", Seconds: 1800, Label: "30 minutes"},
		{ID: "preset-60", Seconds: 3600, Label: "1 hour"},
	}
}

// Presets returns the stored timer presets, or the defaults when none
// have been saved yet.
func (s *Store) Presets() ([]Preset, error) {
	var presets []Preset
	found, err := s.getDoc(colPresets, &presets)
	if err != nil {
		return nil, err
	}
	if !found {
		return DefaultPresets(), nil
	}
	return presets, nil
}

// SavePresets writes the preset list back.
func (s *Store) SavePresets(presets []Preset) error {
	return s.setDoc(colPresets, presets)
}
