package store

import (
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
)

const uiStateKey = "ui"

// LoadUIState returns the persisted layout state, defaulting any missing
// piece. It never fails; layout state is cosmetic.
func (s *Store) LoadUIState() *model.UIState {
	st := &model.UIState{Version: 1}
	s.GetJSON(uiStateKey, st)
	if st.Version == 0 {
		st.Version = 1
	}
	if st.SplitRatio < 20 || st.SplitRatio > 80 {
		st.SplitRatio = 50
	}
	return st
}

// SaveUIState writes the layout state.
func (s *Store) SaveUIState(st *model.UIState) error {
	if st == nil {
		return nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return s.SetJSON(uiStateKey, st)
}
