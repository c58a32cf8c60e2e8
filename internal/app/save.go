package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/expert"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/history"
	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/toast"
)

// Save refusals the caller is expected to surface. Transport failures come
// back as the client's own errors (expert.StatusError, expert.ErrNoToken,
// network errors).
var (
	// ErrNotLoaded means Load has not succeeded yet: there is no token and no
	// baselines to build a request from.
	ErrNotLoaded = errors.New("app is not loaded")
	// ErrSaveInFlight means a save touching the same item is still running;
	// the second save is refused, not queued.
	ErrSaveInFlight = errors.New("save already in flight")
	ErrUnknownItem  = errors.New("unknown item")
)

// SaveOne posts one item's live content. Every other form field is
// transmitted from its baseline, never from unsaved edits, so saving one
// item cannot leak another item's work-in-progress to the server.
func (s *Session) SaveOne(ctx context.Context, id string) error {
	return s.save(ctx, []string{id})
}

// SaveAll posts every item's live content in one request. Post-conditions
// are per item: an item edited while the request was in flight stays dirty
// against its advanced baseline.
func (s *Session) SaveAll(ctx context.Context) error {
	s.mu.Lock()
	targets := append([]string(nil), s.order...)
	s.mu.Unlock()
	return s.save(ctx, targets)
}

func (s *Session) save(ctx context.Context, targets []string) error {
	begin, token, err := s.beginSave(targets)
	if err != nil {
		return err
	}

	// The formatter runs outside the lock; a result is swapped into live
	// content only when the user has not typed since capture, and is
	// transmitted either way.
	send := make(map[string]string, len(targets))
	for _, id := range targets {
		send[id] = s.formatForSave(ctx, id, begin[id])
	}

	if err := s.client.Submit(ctx, s.buildRequest(send, token)); err != nil {
		s.finishFailed(targets, send, err)
		return err
	}
	s.finishSaved(targets, send)
	return nil
}

// beginSave validates the request, marks every target in flight, and captures
// their content. All-or-nothing: one busy target refuses the whole save.
func (s *Session) beginSave(targets []string) (begin map[string]string, token string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, "", ErrNotLoaded
	}
	if s.token == "" {
		return nil, "", expert.ErrNoToken
	}
	for _, id := range targets {
		it, ok := s.items[id]
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrUnknownItem, id)
		}
		if it.Saving {
			return nil, "", fmt.Errorf("%w: %s", ErrSaveInFlight, id)
		}
	}
	begin = make(map[string]string, len(targets))
	for _, id := range targets {
		s.items[id].Saving = true
		begin[id] = s.items[id].Content
	}
	return begin, s.token, nil
}

// formatForSave runs the external formatter over one captured content. A
// failure degrades to an unformatted save with a warning.
func (s *Session) formatForSave(ctx context.Context, id, text string) string {
	if !s.fmtr.Enabled() {
		return text
	}
	it, _ := s.Item(id)
	formatted, err := s.fmtr.Format(ctx, text, it.Spec.Language)
	if err != nil {
		s.log.Warn("formatter failed, saving unformatted", "item", id, "err", err)
		s.notifyf(toast.KindWarning, "Formatter failed for %s, saving unformatted", it.Spec.Label)
		return text
	}
	if formatted == text {
		return text
	}
	s.mu.Lock()
	if cur := s.items[id]; cur.Content == text {
		cur.Content = formatted
		was := cur.Dirty
		cur.Dirty = cur.Content != cur.Original
		if was && !cur.Dirty {
			s.maybeClearSnapshotLocked()
		}
	}
	s.mu.Unlock()
	return formatted
}

// buildRequest assembles the full legacy form from current state: targets
// carry their outgoing content, every other field its baseline. The endpoint
// persists the whole field set on every POST, so the non-target values matter
// as much as the target ones.
func (s *Session) buildRequest(send map[string]string, token string) expert.SubmitRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields := make([]expert.FormField, 0, len(s.order))
	for _, id := range s.order {
		it := s.items[id]
		v, ok := send[id]
		if !ok {
			v = it.Original
		}
		fields = append(fields, expert.FormField{Name: it.Spec.FieldName, Value: v})
	}
	return expert.SubmitRequest{
		Path:        s.spec.Path,
		Token:       token,
		Fields:      fields,
		SubmitName:  s.spec.SubmitName,
		SubmitValue: s.spec.SubmitValue,
	}
}

// finishFailed releases the in-flight marks and journals the attempt. Item
// state is otherwise untouched: baselines only move on success.
func (s *Session) finishFailed(targets []string, send map[string]string, cause error) {
	s.mu.Lock()
	for _, id := range targets {
		s.items[id].Saving = false
	}
	s.mu.Unlock()
	s.journalSaves(targets, send, history.OutcomeFailed, cause.Error())
}

// finishSaved advances baselines to the exact transmitted strings and
// re-derives dirtiness from live content: an item edited while the request
// was in flight keeps its dirty flag, now against the new baseline.
func (s *Session) finishSaved(targets []string, send map[string]string) {
	s.mu.Lock()
	stillDirty := 0
	wentClean := false
	for _, id := range targets {
		it := s.items[id]
		it.Saving = false
		was := it.Dirty
		it.Original = send[id]
		it.Dirty = it.Content != it.Original
		if it.Dirty {
			stillDirty++
		} else if was {
			wentClean = true
		}
	}
	if wentClean {
		s.maybeClearSnapshotLocked()
	}
	single := ""
	if len(targets) == 1 {
		single = s.items[targets[0]].Spec.Label
	}
	s.mu.Unlock()

	s.persist.Notify()
	s.journalSaves(targets, send, history.OutcomeSaved, "")

	switch {
	case single != "" && stillDirty > 0:
		s.notifyf(toast.KindSuccess, "Saved %s (edits made during the save are still unsaved)", single)
	case single != "":
		s.notifyf(toast.KindSuccess, "Saved %s", single)
	case stillDirty > 0:
		s.notifyf(toast.KindSuccess, "Saved %d items (%d with edits still unsaved)", len(targets), stillDirty)
	default:
		s.notifyf(toast.KindSuccess, "Saved %d items", len(targets))
	}
}

// journalSaves appends one row per target, best effort, with the content that
// was (or would have been) transmitted. A dead journal warns once per save
// and never fails it. The background context keeps journaling alive when the
// save itself died of a timeout.
func (s *Session) journalSaves(targets []string, send map[string]string, outcome, detail string) {
	if s.journal == nil {
		return
	}
	ctx := context.Background()
	warned := false
	for _, id := range targets {
		if _, err := s.journal.Record(ctx, string(s.spec.ID), id, outcome, detail, send[id]); err != nil {
			s.log.Warn("history journal write failed", "app", s.spec.ID, "item", id, "err", err)
			if !warned {
				s.notifyf(toast.KindWarning, "Save history could not be recorded")
				warned = true
			}
		}
	}
}
