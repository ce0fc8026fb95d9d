package permit

import (
	"log/slog"
	"time"

	"github.com/safetyops/permit-management/internal/auth"
)

// RepositoryAPI defines the data access methods for permits. Every read and
// mutation takes the caller's scope; there is no unscoped variant.
type RepositoryAPI interface {
	Create(p *Permit) error
	GetByID(scope auth.Scope, id int64) (*Permit, error)
	GetAll(scope auth.Scope) ([]*Permit, error)
	Update(p *Permit) error
	Delete(scope auth.Scope, id int64) error
	Search(scope auth.Scope, q SearchQuery) ([]*Permit, error)
	Stats(scope auth.Scope, now time.Time) (*Stats, error)
}

// Service handles permit business logic.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Create stores a new permit owned by the caller. The owner comes from the
// scope, never from the payload.
func (s *Service) Create(scope auth.Scope, dto CreatePermitDTO) (*Permit, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("permit validation failed", "error", err, "user_id", scope.UserID)
		return nil, err
	}

	p := dto.ToPermit(scope.UserID)
	if err := s.repo.Create(p); err != nil {
		s.logger.Error("failed to create permit", "error", err, "user_id", scope.UserID)
		return nil, err
	}

	s.logger.Info("permit created",
		"permit_id", p.ID,
		"permit_number", p.PermitNumber,
		"user_id", scope.UserID)

	return p, nil
}

// GetByID returns a single visible permit. Out-of-scope access is
// indistinguishable from a missing record.
func (s *Service) GetByID(scope auth.Scope, id int64) (*Permit, error) {
	return s.repo.GetByID(scope, id)
}

// GetAll returns every permit visible under the scope.
func (s *Service) GetAll(scope auth.Scope) ([]*Permit, error) {
	return s.repo.GetAll(scope)
}

// Update applies a partial update to a visible permit. Attempts to change the
// record identity or owner are rejected before anything is loaded.
func (s *Service) Update(scope auth.Scope, id int64, dto UpdatePermitDTO) (*Permit, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("permit update validation failed", "error", err, "permit_id", id, "user_id", scope.UserID)
		return nil, err
	}

	p, err := s.repo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}

	dto.Apply(p)
	if err := s.repo.Update(p); err != nil {
		s.logger.Error("failed to update permit", "error", err, "permit_id", id)
		return nil, err
	}

	s.logger.Info("permit updated", "permit_id", p.ID, "user_id", scope.UserID)
	return p, nil
}

// Delete removes a visible permit permanently and returns the deleted record.
// A second delete of the same id reports not-found.
func (s *Service) Delete(scope auth.Scope, id int64) (*Permit, error) {
	p, err := s.repo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(scope, id); err != nil {
		s.logger.Error("failed to delete permit", "error", err, "permit_id", id)
		return nil, err
	}

	s.logger.Info("permit deleted", "permit_id", id, "user_id", scope.UserID)
	return p, nil
}

// Search filters visible permits by the provided criteria.
func (s *Service) Search(scope auth.Scope, q SearchQuery) ([]*Permit, error) {
	return s.repo.Search(scope, q)
}

// Stats aggregates counts over visible permits. "Expired" is derived from the
// expiry date and overlaps with the status counts.
func (s *Service) Stats(scope auth.Scope) (*Stats, error) {
	return s.repo.Stats(scope, time.Now())
}
