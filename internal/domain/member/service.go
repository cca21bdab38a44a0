package member

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"circulation-engine/internal/event"
	"circulation-engine/internal/pkg/apperrors"
	"circulation-engine/internal/pkg/validate"

	"github.com/google/uuid"
)

type Service interface {
	// RegisterMember adds a new member. The code must match the fixed
	// alphanumeric pattern and is unique; records are immutable afterwards.
	RegisterMember(ctx context.Context, code, name, surname, dateOfBirth string) (*Member, error)

	GetMember(ctx context.Context, code string) (*Member, error)
}

type memberService struct {
	repo   Repository
	pub    event.Publisher
	logger *slog.Logger
}

var _ Service = (*memberService)(nil)

func NewService(repo Repository, pub event.Publisher, logger *slog.Logger) Service {
	if repo == nil {
		panic("member repository cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &memberService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "memberService")),
	}
}

func (s *memberService) RegisterMember(ctx context.Context, code, name, surname, dateOfBirth string) (*Member, error) {
	s.logger.InfoContext(ctx, "Registering new member", "member_code", code)

	if !validate.MemberCode(code) {
		return nil, apperrors.NewValidationError("code", "must be three uppercase letters followed by up to five digits")
	}
	if !validate.Name(name) {
		return nil, apperrors.NewValidationError("name", "must be letters and spaces, at most 25 characters")
	}
	if !validate.Name(surname) {
		return nil, apperrors.NewValidationError("surname", "must be letters and spaces, at most 25 characters")
	}
	dob, ok := validate.Date(dateOfBirth)
	if !ok {
		return nil, apperrors.NewValidationError("dateOfBirth", "must be a YYYY-MM-DD calendar date")
	}

	m := NewMember(code, name, surname, dob)
	if err := s.repo.Create(ctx, m); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save new member", "member_code", code, slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Member registered", "member_code", code)
	ev := event.MemberRegisteredEvent{
		EventID:    uuid.NewString(),
		Timestamp:  time.Now(),
		MemberCode: code,
	}
	if err := s.pub.PublishMemberRegistered(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Member registered, but failed to publish event", "member_code", code, slog.Any("error", err))
	}

	return m, nil
}

func (s *memberService) GetMember(ctx context.Context, code string) (*Member, error) {
	m, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error finding member", "member_code", code, slog.Any("error", err))
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: code %s", apperrors.ErrMemberNotFound, code)
	}
	return m, nil
}
