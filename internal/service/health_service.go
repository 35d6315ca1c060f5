package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/domain"
	"github.com/huddleapp/huddle/internal/repository"
	"github.com/huddleapp/huddle/pkg/rbac"
)

var (
	ErrHealthRecordNotFound = errors.New("health record not found")
	ErrInvalidRecordType    = errors.New("unknown health record type")
	ErrInvalidRecordStatus  = errors.New("unknown health record status")
	ErrInvalidSeverity      = errors.New("unknown severity")
)

// HealthService tracks injury, fitness and medical records per player.
// Reading requires health.view; writing requires health.manage.
type HealthService struct {
	healthRepo repository.HealthRepository
	userRepo   repository.UserRepository
	rbac       *RBACService
}

func NewHealthService(healthRepo repository.HealthRepository, userRepo repository.UserRepository, rbacService *RBACService) *HealthService {
	return &HealthService{
		healthRepo: healthRepo,
		userRepo:   userRepo,
		rbac:       rbacService,
	}
}

type HealthRecordInput struct {
	PlayerID   uuid.UUID                 `json:"player_id"`
	Type       domain.HealthRecordType   `json:"type"`
	Status     domain.HealthRecordStatus `json:"status"`
	Severity   domain.HealthSeverity     `json:"severity"`
	Title      string                    `json:"title"`
	Notes      *string                   `json:"notes,omitempty"`
	OccurredAt time.Time                 `json:"occurred_at"`
	ResolvedAt *time.Time                `json:"resolved_at,omitempty"`
}

func (i HealthRecordInput) validate() error {
	if !i.Type.Valid() {
		return ErrInvalidRecordType
	}
	if !i.Status.Valid() {
		return ErrInvalidRecordStatus
	}
	if !i.Severity.Valid() {
		return ErrInvalidSeverity
	}
	return nil
}

func (s *HealthService) Create(ctx context.Context, userID uuid.UUID, input HealthRecordInput) (*domain.HealthRecord, error) {
	if err := s.rbac.Require(ctx, userID, rbac.PermManageHealth); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	player, err := s.userRepo.GetByID(ctx, input.PlayerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrUserNotFound
	}

	now := time.Now()
	rec := &domain.HealthRecord{
		ID:         uuid.New(),
		PlayerID:   input.PlayerID,
		Type:       input.Type,
		Status:     input.Status,
		Severity:   input.Severity,
		Title:      input.Title,
		Notes:      input.Notes,
		RecordedBy: userID,
		OccurredAt: input.OccurredAt,
		ResolvedAt: input.ResolvedAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.healthRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating health record: %w", err)
	}

	return rec, nil
}

func (s *HealthService) Get(ctx context.Context, userID, recordID uuid.UUID) (*domain.HealthRecord, error) {
	if err := s.rbac.Require(ctx, userID, rbac.PermViewHealth); err != nil {
		return nil, err
	}

	rec, err := s.healthRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrHealthRecordNotFound
	}
	return rec, nil
}

func (s *HealthService) ListByPlayer(ctx context.Context, userID, playerID uuid.UUID) ([]domain.HealthRecord, error) {
	if err := s.rbac.Require(ctx, userID, rbac.PermViewHealth); err != nil {
		return nil, err
	}

	records, err := s.healthRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.HealthRecord{}
	}
	return records, nil
}

func (s *HealthService) Update(ctx context.Context, userID, recordID uuid.UUID, input HealthRecordInput) (*domain.HealthRecord, error) {
	if err := s.rbac.Require(ctx, userID, rbac.PermManageHealth); err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	rec, err := s.healthRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrHealthRecordNotFound
	}

	rec.Status = input.Status
	rec.Severity = input.Severity
	rec.Title = input.Title
	rec.Notes = input.Notes
	rec.ResolvedAt = input.ResolvedAt

	if err := s.healthRepo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("updating health record: %w", err)
	}

	return rec, nil
}

func (s *HealthService) Delete(ctx context.Context, userID, recordID uuid.UUID) error {
	if err := s.rbac.Require(ctx, userID, rbac.PermManageHealth); err != nil {
		return err
	}

	rec, err := s.healthRepo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrHealthRecordNotFound
	}

	return s.healthRepo.Delete(ctx, recordID)
}
