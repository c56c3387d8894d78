package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/journeywithfriends/forest-bot/internal/config"
	"github.com/journeywithfriends/forest-bot/internal/sheets"
	"go.uber.org/zap"
)

var (
	// ErrMissingField reports a required request field that is absent or empty.
	ErrMissingField = errors.New("reservation: missing required field")

	// ErrSeatTaken reports an optimistic duplicate-seat rejection. The check
	// is best effort: two concurrent requests for the same seat can both pass
	// it, and the spreadsheet accepts both rows.
	ErrSeatTaken = errors.New("reservation: seat already booked")

	errMissingStore     = errors.New("row store dependency required")
	errMissingDirectory = errors.New("group directory required for the group partition scheme")

	// ErrInvalidServiceConfig reports unusable service configuration.
	ErrInvalidServiceConfig = errors.New("reservation: invalid service config")
)

// Reservation is one immutable booking record. There is no update or delete.
type Reservation struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	GroupID    string `json:"groupId"`
	UserID     string `json:"userId"`
	SeatNumber string `json:"seatNumber"`
	Name       string `json:"name"`
}

// Request carries the caller-supplied fields of a new booking.
type Request struct {
	GroupID    string
	UserID     string
	SeatNumber string
	Name       string
}

// RowStore is the spreadsheet surface the service depends on.
type RowStore interface {
	EnsureTab(ctx context.Context, title string) error
	AppendRow(ctx context.Context, title string, row []string) error
	Rows(ctx context.Context, title string) ([][]string, error)
}

// GroupDirectory resolves chat group display names.
type GroupDirectory interface {
	GroupName(ctx context.Context, groupID string) (string, error)
}

// IDProvider issues identifiers for new reservations.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the reservation service.
type ServiceConfig struct {
	Store           RowStore
	Directory       GroupDirectory
	PartitionScheme string
	SharedTabName   string
	Clock           func() time.Time
	IDProvider      IDProvider
	Logger          *zap.Logger
}

// Service appends and lists reservation rows in the external spreadsheet.
// The spreadsheet is the system of record; rows are re-read on every query.
type Service struct {
	store     RowStore
	directory GroupDirectory
	scheme    string
	sharedTab string
	now       func() time.Time
	ids       IDProvider
	logger    *zap.Logger
}

// NewService constructs the reservation service with validated configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServiceConfig, errMissingStore)
	}

	scheme := cfg.PartitionScheme
	if scheme == "" {
		scheme = config.PartitionGroup
	}
	if scheme == config.PartitionGroup && cfg.Directory == nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServiceConfig, errMissingDirectory)
	}

	sharedTab := cfg.SharedTabName
	if sharedTab == "" {
		sharedTab = "reservations"
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:     cfg.Store,
		directory: cfg.Directory,
		scheme:    scheme,
		sharedTab: sharedTab,
		now:       clock,
		ids:       ids,
		logger:    logger,
	}, nil
}

// Reserve validates the request, provisions the target tab, rejects a seat
// already booked for the group, and appends one row. The returned record is
// the row as written, including the assigned id and timestamp.
func (s *Service) Reserve(ctx context.Context, request Request) (Reservation, error) {
	if err := validate(request); err != nil {
		return Reservation{}, err
	}

	tab := s.resolveTab(ctx, request.GroupID)
	if err := s.store.EnsureTab(ctx, tab.Name); err != nil {
		return Reservation{}, err
	}

	existing, err := s.readGroup(ctx, tab.Name, request.GroupID)
	if err != nil {
		return Reservation{}, err
	}
	for _, booked := range existing {
		if booked.SeatNumber == request.SeatNumber {
			return Reservation{}, fmt.Errorf("%w: %s", ErrSeatTaken, request.SeatNumber)
		}
	}

	id, err := s.ids.NewID()
	if err != nil {
		return Reservation{}, err
	}

	record := Reservation{
		ID:         id,
		Timestamp:  s.now().UTC().Format(time.RFC3339),
		GroupID:    request.GroupID,
		UserID:     request.UserID,
		SeatNumber: request.SeatNumber,
		Name:       request.Name,
	}
	row := []string{record.Timestamp, record.GroupID, record.UserID, record.SeatNumber, record.Name, record.ID}
	if err := s.store.AppendRow(ctx, tab.Name, row); err != nil {
		return Reservation{}, err
	}

	s.logger.Info("reservation appended",
		zap.String("tab", tab.Name),
		zap.String("group_id", record.GroupID),
		zap.String("seat", record.SeatNumber))
	return record, nil
}

// ListSeats returns every reservation recorded for the group, in row order.
func (s *Service) ListSeats(ctx context.Context, groupID string) ([]Reservation, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, fmt.Errorf("%w: groupId", ErrMissingField)
	}

	tab := s.resolveTab(ctx, groupID)
	return s.readGroup(ctx, tab.Name, groupID)
}

// readGroup reads all rows in the tab and keeps those belonging to the group.
// The filter is what isolates groups under the shared partition scheme; for
// per-group tabs it matches every row.
func (s *Service) readGroup(ctx context.Context, tabName, groupID string) ([]Reservation, error) {
	rows, err := s.store.Rows(ctx, tabName)
	if err != nil {
		if errors.Is(err, sheets.ErrTabNotFound) {
			return []Reservation{}, nil
		}
		return nil, err
	}

	records := make([]Reservation, 0, len(rows))
	for _, row := range rows {
		record, ok := rowToReservation(row)
		if !ok || record.GroupID != groupID {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func validate(request Request) error {
	fields := []struct {
		name  string
		value string
	}{
		{"groupId", request.GroupID},
		{"userId", request.UserID},
		{"seatNumber", request.SeatNumber},
		{"name", request.Name},
	}
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, field.name)
		}
	}
	return nil
}

func rowToReservation(row []string) (Reservation, bool) {
	if len(row) < 5 {
		return Reservation{}, false
	}
	record := Reservation{
		Timestamp:  row[0],
		GroupID:    row[1],
		UserID:     row[2],
		SeatNumber: row[3],
		Name:       row[4],
	}
	if len(row) > 5 {
		record.ID = row[5]
	}
	return record, true
}
