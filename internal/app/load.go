package app

import (
	"context"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
)

// LoadInfo reports what a Load did.
type LoadInfo struct {
	// FromSnapshot is true when content and baselines came from a local
	// snapshot holding unsaved edits instead of from the server.
	FromSnapshot bool
	// ActiveItemIDs lists the editor surfaces that were open when the
	// restored snapshot was written. Empty on server loads.
	ActiveItemIDs []string
}

// Load populates the session. The edit page is always fetched, because every
// save needs a fresh anti-forgery token; whether its content is used depends
// on checkpoint protection: a local snapshot holding unsaved edits beats the
// server wholesale, with no merging. A clean local snapshot loses to the
// server and is cleared.
//
// On error nothing is mutated; the caller retries. Calling Load again on a
// live session refreshes the token, and content only when nothing is dirty.
func (s *Session) Load(ctx context.Context) (LoadInfo, error) {
	// Decide the content source before the fetch so a keystroke arriving
	// during a slow GET cannot flip the decision mid-load.
	s.mu.Lock()
	var saved *model.AppState
	if !s.loaded && s.store != nil {
		saved = s.store.LoadAppState(s.spec.ID)
	}
	var skipContent bool
	if s.loaded {
		skipContent = s.anyDirtyLocked()
	} else {
		skipContent = saved.AnyDirty()
	}
	s.mu.Unlock()

	page, err := s.client.FetchEditPage(ctx, s.spec.Path, s.spec.FieldNames())
	if err != nil {
		return LoadInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = page.Token
	info := LoadInfo{FromSnapshot: skipContent}

	switch {
	case skipContent && saved != nil:
		info.ActiveItemIDs = append([]string(nil), saved.ActiveItemIDs...)
		s.activeIDs = append([]string(nil), saved.ActiveItemIDs...)
		for _, id := range s.order {
			it := s.items[id]
			content, okC := saved.Content[id]
			original, okO := saved.OriginalContent[id]
			if !okO {
				// No recorded baseline (snapshot predates the item, or is
				// damaged); the server value is the only baseline there is.
				original = page.Fields[it.Spec.FieldName]
			}
			if !okC {
				content = original
			}
			it.Content, it.Original = content, original
		}
	case skipContent:
		// Reload of a live dirty session: keep content and baselines, the
		// fresh token is the whole point.
	default:
		for _, id := range s.order {
			it := s.items[id]
			v := page.Fields[it.Spec.FieldName]
			it.Content = v
			it.Original = v
		}
	}

	s.loaded = true
	s.recomputeDirtyLocked()
	if !skipContent {
		// A clean server load supersedes whatever snapshot was on disk.
		s.maybeClearSnapshotLocked()
	}
	return info, nil
}
