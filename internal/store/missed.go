package store

// missedDedupeWindow is the due-time tolerance within which two records
// for the same entity are considered the same occurrence.
const missedDedupeWindow = 60

// missedLogCap bounds the missed-item log; oldest entries are dropped.
const missedLogCap = 200

// MissedItems returns the missed-item log, newest first.
func (s *Store) MissedItems() ([]MissedItem, error) {
	var items []MissedItem
	if _, err := s.getDoc(colMissedItems, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AppendMissedItems adds records to the log, deduplicating by entity id
// and due time within a 60-second window. It returns how many records
// were actually added.
func (s *Store) AppendMissedItems(newItems []MissedItem) (int, error) {
	if len(newItems) == 0 {
		return 0, nil
	}
	items, err := s.MissedItems()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, item := range newItems {
		if missedContains(items, item) {
			continue
		}
		items = append([]MissedItem{item}, items...)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if len(items) > missedLogCap {
		items = items[:missedLogCap]
	}
	return added, s.setDoc(colMissedItems, items)
}

// ClearMissedItems empties the log.
func (s *Store) ClearMissedItems() error {
	return s.setDoc(colMissedItems, []MissedItem{})
}

func missedContains(items []MissedItem, item MissedItem) bool {
	for _, existing := range items {
		if existing.ID != item.ID {
			continue
		}
		delta := existing.DueTime - item.DueTime
		if delta < 0 {
			delta = -delta
		}
		if delta <= missedDedupeWindow {
			return true
		}
	}
	return false
}
