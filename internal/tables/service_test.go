package tables

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	byToken map[string]*Table
}

func (s *fakeStore) Get(_ context.Context, id int64) (*Table, error) {
	for _, t := range s.byToken {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) GetBySessionToken(_ context.Context, token string) (*Table, error) {
	t, ok := s.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *fakeStore) List(_ context.Context) ([]Table, error) {
	var out []Table
	for _, t := range s.byToken {
		out = append(out, *t)
	}
	return out, nil
}

func (s *fakeStore) RotateSessionToken(_ context.Context, _ int64) (string, error) {
	return "rotated", nil
}

type capturedEvent struct {
	event   string
	payload any
}

type fakeNotifier struct {
	events []capturedEvent
}

func (n *fakeNotifier) Changed(event string, payload any) {
	n.events = append(n.events, capturedEvent{event: event, payload: payload})
}

func TestStaffCall_NotifiesStaffWithNarrowedNumber(t *testing.T) {
	store := &fakeStore{byToken: map[string]*Table{
		"tok-1": {ID: 4, Number: "１２", Active: true},
	}}
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier, slog.Default())

	tableNo, err := svc.StaffCall(context.Background(), "tok-1")
	require.NoError(t, err)

	// Full-width register input comes back narrowed.
	assert.Equal(t, "12", tableNo)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "staff_call", notifier.events[0].event)
	payload := notifier.events[0].payload.(map[string]any)
	assert.Equal(t, "12", payload["table_no"])
	assert.Equal(t, int64(4), payload["table_id"])
}

func TestStaffCall_RejectsUnknownToken(t *testing.T) {
	svc := NewService(&fakeStore{byToken: map[string]*Table{}}, &fakeNotifier{}, slog.Default())

	_, err := svc.StaffCall(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.StaffCall(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolve(t *testing.T) {
	table := &Table{ID: 9, Number: "3", SessionToken: "tok-9", Active: true}
	svc := NewService(&fakeStore{byToken: map[string]*Table{"tok-9": table}}, nil, slog.Default())

	got, err := svc.Resolve(context.Background(), "tok-9")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.ID)
}
