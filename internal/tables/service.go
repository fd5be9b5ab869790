package tables

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/width"
)

var ErrInvalidToken = errors.New("unknown or inactive session token")

// Store is the persistence surface the service needs.
type Store interface {
	Get(ctx context.Context, id int64) (*Table, error)
	GetBySessionToken(ctx context.Context, token string) (*Table, error)
	List(ctx context.Context) ([]Table, error)
	RotateSessionToken(ctx context.Context, tableID int64) (string, error)
}

// Notifier wakes staff terminals.
type Notifier interface {
	Changed(event string, payload any)
}

// Service resolves tables and relays guest staff calls.
type Service struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

func NewService(store Store, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger}
}

// Resolve returns the table behind a guest session token.
func (s *Service) Resolve(ctx context.Context, token string) (*Table, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	t, err := s.store.GetBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return t, nil
}

// StaffCall relays a guest's call button press to the staff channel and
// returns the display table number. Table numbers entered on old registers
// may be full-width; they are narrowed for display consistency.
func (s *Service) StaffCall(ctx context.Context, token string) (string, error) {
	t, err := s.Resolve(ctx, token)
	if err != nil {
		return "", err
	}
	number := width.Narrow.String(t.Number)

	s.logger.InfoContext(ctx, "staff call", "table_id", t.ID, "table_no", number)
	if s.notifier != nil {
		s.notifier.Changed("staff_call", map[string]any{
			"table_id": t.ID,
			"table_no": number,
		})
	}
	return number, nil
}

// List returns all tables for the back office.
func (s *Service) List(ctx context.Context) ([]Table, error) {
	return s.store.List(ctx)
}

// RotateToken issues a fresh session token for a table.
func (s *Service) RotateToken(ctx context.Context, tableID int64) (string, error) {
	return s.store.RotateSessionToken(ctx, tableID)
}
