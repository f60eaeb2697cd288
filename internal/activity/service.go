// Package activity keeps an append-only journal of room lifecycle events for
// operators. Drawing state is never reconstructed from it.
package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opServiceNew       = "activity.service.new"
	opRecord           = "activity.record"
	opListRoomEvents   = "activity.list_room_events"
	reasonMissingDB    = "missing_database"
	reasonMissingRoom  = "missing_room_id"
	reasonInvalidKind  = "invalid_kind"
	reasonIDFailed     = "id_generation_failed"
	reasonInsertFailed = "insert_failed"
	reasonQueryFailed  = "query_failed"

	// DefaultListLimit caps ListRoomEvents when the caller passes no limit.
	DefaultListLimit = 100
	maxListLimit     = 1000
	maxDetailLength  = 190
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingRoomID   = errors.New("room identifier is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries a stable "<operation>.<reason>" code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDB, errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: idProvider,
		logger:     logger,
	}, nil
}

// Record appends one entry to the journal.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	roomID := entry.RoomID
	if strings.TrimSpace(roomID) == "" {
		return newServiceError(opRecord, reasonMissingRoom, errMissingRoomID)
	}
	kind, err := ParseKind(string(entry.Kind))
	if err != nil {
		return newServiceError(opRecord, reasonInvalidKind, err)
	}
	eventID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opRecord, reasonIDFailed, err, zap.String("room_id", roomID))
		return newServiceError(opRecord, reasonIDFailed, err)
	}

	detail := entry.Detail
	if len(detail) > maxDetailLength {
		detail = detail[:maxDetailLength]
	}

	event := RoomEvent{
		EventID:           eventID,
		RoomID:            roomID,
		ConnectionID:      entry.ConnectionID,
		Kind:              kind,
		Detail:            detail,
		RecordedAtSeconds: s.clock().UTC().Unix(),
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		s.logError(opRecord, reasonInsertFailed, err, zap.String("room_id", roomID))
		return newServiceError(opRecord, reasonInsertFailed, err)
	}
	return nil
}

// ListRoomEvents returns the newest journal entries of a room, newest first.
func (s *Service) ListRoomEvents(ctx context.Context, roomID string, limit int) ([]RoomEvent, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, newServiceError(opListRoomEvents, reasonMissingRoom, errMissingRoomID)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	events := make([]RoomEvent, 0)
	if err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("recorded_at_s DESC").
		Order("event_id DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		s.logError(opListRoomEvents, reasonQueryFailed, err, zap.String("room_id", roomID))
		return nil, newServiceError(opListRoomEvents, reasonQueryFailed, err)
	}
	return events, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("activity service error", attrs...)
}
