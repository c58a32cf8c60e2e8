package store

import (
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
)

// Snapshot schema version. Bump on incompatible shape changes; old snapshots
// are then treated as absent rather than misread.
const appStateVersion = 1

func appStateKey(id model.AppID) string { return "app-" + string(id) }

// LoadAppState returns the persisted snapshot for one app, or nil when there
// is none (absent, corrupt, or written by an incompatible version).
func (s *Store) LoadAppState(id model.AppID) *model.AppState {
	var st model.AppState
	if !s.GetJSON(appStateKey(id), &st) {
		return nil
	}
	if st.Version != appStateVersion {
		s.log.Warn("state snapshot version mismatch, ignoring",
			"app", string(id), "version", st.Version)
		return nil
	}
	if st.Content == nil {
		st.Content = map[string]string{}
	}
	if st.IsDirty == nil {
		st.IsDirty = map[string]bool{}
	}
	if st.OriginalContent == nil {
		st.OriginalContent = map[string]string{}
	}
	return &st
}

// SaveAppState writes the snapshot for one app.
func (s *Store) SaveAppState(id model.AppID, st *model.AppState) error {
	if st == nil {
		return nil
	}
	st.Version = appStateVersion
	return s.SetJSON(appStateKey(id), st)
}

// ClearAppState removes the snapshot for one app. Called when every item in
// the app is clean; also the backing for explicit discard.
func (s *Store) ClearAppState(id model.AppID) error {
	return s.Clear(appStateKey(id))
}

// HasAppState reports whether a snapshot exists for the app.
func (s *Store) HasAppState(id model.AppID) bool {
	return s.Has(appStateKey(id))
}
