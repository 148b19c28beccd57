package membership

import (
	"context"
	"fmt"

	"ms-membership/internal/models"
	"ms-membership/internal/utils"
)

type MembershipDBLayer interface {
	GetMembershipsByOrder(ctx context.Context, orderID string) ([]models.Membership, error)
	GetMembershipByNo(ctx context.Context, memberNo string) (*models.Membership, error)
	UpdateMembership(ctx context.Context, membership models.Membership) error
}

// Service covers the administrative paths outside the pledge workflow:
// reading, linking, cancelling and expiring already-issued memberships.
type Service struct {
	DB    MembershipDBLayer
	Clock utils.Clock
}

func NewService(db MembershipDBLayer, clock utils.Clock) *Service {
	return &Service{DB: db, Clock: clock}
}

func (s *Service) GetMembershipsByOrder(ctx context.Context, orderID string) ([]models.Membership, error) {
	return s.DB.GetMembershipsByOrder(ctx, orderID)
}

func (s *Service) GetMembership(ctx context.Context, memberNo string) (*models.Membership, error) {
	m, err := s.DB.GetMembershipByNo(ctx, memberNo)
	if err != nil {
		return nil, fmt.Errorf("membership %s not found: %w", memberNo, err)
	}
	return m, nil
}

// IsActive reads the derived activity state against the injected clock.
func (s *Service) IsActive(ctx context.Context, memberNo string) (bool, error) {
	m, err := s.GetMembership(ctx, memberNo)
	if err != nil {
		return false, err
	}
	return m.IsActive(s.Clock.Now()), nil
}

func (s *Service) CancelMembership(ctx context.Context, memberNo string) error {
	m, err := s.GetMembership(ctx, memberNo)
	if err != nil {
		return err
	}
	m.Cancel()
	if err := s.DB.UpdateMembership(ctx, *m); err != nil {
		return fmt.Errorf("failed to cancel membership %s: %w", memberNo, err)
	}
	return nil
}

func (s *Service) ExpireMembership(ctx context.Context, memberNo string) error {
	m, err := s.GetMembership(ctx, memberNo)
	if err != nil {
		return err
	}
	m.Expire()
	if err := s.DB.UpdateMembership(ctx, *m); err != nil {
		return fmt.Errorf("failed to expire membership %s: %w", memberNo, err)
	}
	return nil
}

// LinkUser attaches a platform account to a membership bought for someone
// else (multi-seat purchases).
func (s *Service) LinkUser(ctx context.Context, memberNo, userID string) error {
	m, err := s.GetMembership(ctx, memberNo)
	if err != nil {
		return err
	}
	m.UserID = userID
	if err := s.DB.UpdateMembership(ctx, *m); err != nil {
		return fmt.Errorf("failed to link user to membership %s: %w", memberNo, err)
	}
	return nil
}
