package store

import (
	"context"
	"slices"

	"github.com/nhle/mailhub/internal/model"
)

// GetMessages returns all stored messages, newest insert first.
func (s *SQLiteStore) GetMessages(_ context.Context) ([]model.Message, error) {
	s.messagesMu.Lock()
	defer s.messagesMu.Unlock()

	out := make([]model.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = cloneMessage(m)
	}
	return out, nil
}

// GetMessage returns the message with the given ID or ErrNotFound.
func (s *SQLiteStore) GetMessage(_ context.Context, id string) (*model.Message, error) {
	s.messagesMu.Lock()
	defer s.messagesMu.Unlock()

	if idx := s.indexOf(id); idx >= 0 {
		m := cloneMessage(s.messages[idx])
		return &m, nil
	}
	return nil, ErrNotFound
}

// AddMessage inserts msg at the head unless its ID is already stored.
func (s *SQLiteStore) AddMessage(ctx context.Context, msg model.Message) (bool, error) {
	n, err := s.AddMessages(ctx, []model.Message{msg})
	return n == 1, err
}

// AddMessages inserts each message whose ID is not already stored at the
// head of the collection, walking msgs in order. IDs seen earlier in the
// same batch count as stored. Nothing is written when every message is
// a duplicate.
func (s *SQLiteStore) AddMessages(ctx context.Context, msgs []model.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	s.messagesMu.Lock()
	defer s.messagesMu.Unlock()

	seen := make(map[string]struct{}, len(s.messages)+len(msgs))
	for _, m := range s.messages {
		seen[m.ID] = struct{}{}
	}

	var fresh []model.Message
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		fresh = append(fresh, cloneMessage(m))
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	// Each insert goes to index 0, so the batch ends up reversed.
	slices.Reverse(fresh)
	next := make([]model.Message, 0, len(fresh)+len(s.messages))
	next = append(next, fresh...)
	next = append(next, s.messages...)

	if err := s.save(ctx, collectionMessages, next); err != nil {
		return 0, err
	}
	s.messages = next
	return len(fresh), nil
}

// UpdateMessage replaces the stored message with the same ID.
func (s *SQLiteStore) UpdateMessage(ctx context.Context, msg model.Message) error {
	return s.ModifyMessage(ctx, msg.ID, func(m *model.Message) {
		*m = cloneMessage(msg)
	})
}

// ModifyMessage applies fn to a copy of the message with the given ID and
// persists the result. The message ID cannot be changed through fn.
func (s *SQLiteStore) ModifyMessage(
	ctx context.Context,
	id string,
	fn func(*model.Message),
) error {
	s.messagesMu.Lock()
	defer s.messagesMu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	next := slices.Clone(s.messages)
	next[idx] = cloneMessage(next[idx])
	fn(&next[idx])
	next[idx] = cloneMessage(next[idx])
	next[idx].ID = id

	if err := s.save(ctx, collectionMessages, next); err != nil {
		return err
	}
	s.messages = next
	return nil
}

// DeleteMessage removes the message with the given ID.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	s.messagesMu.Lock()
	defer s.messagesMu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	next := slices.Delete(slices.Clone(s.messages), idx, idx+1)
	if err := s.save(ctx, collectionMessages, next); err != nil {
		return err
	}
	s.messages = next
	return nil
}

// indexOf must be called with messagesMu held.
func (s *SQLiteStore) indexOf(id string) int {
	return slices.IndexFunc(s.messages, func(m model.Message) bool {
		return m.ID == id
	})
}

// cloneMessage copies m so that no slice or pointer is shared with the
// collection.
func cloneMessage(m model.Message) model.Message {
	m.To = slices.Clone(m.To)
	m.Cc = slices.Clone(m.Cc)
	m.Bcc = slices.Clone(m.Bcc)
	m.Labels = slices.Clone(m.Labels)
	if m.Classification != nil {
		c := *m.Classification
		m.Classification = &c
	}
	return m
}
