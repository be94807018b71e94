package profiles

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/files"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/locations"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/storage"
)

const imageURLTTL = time.Hour

// Service reads and edits profiles.
type Service struct {
	repo      Repository
	locations locations.Service
	storage   storage.Service
	logger    *slog.Logger
}

// NewService creates a profile service. A nil storage omits image URLs.
func NewService(repo Repository, locs locations.Service, store storage.Service, logger *slog.Logger) *Service {
	return &Service{repo: repo, locations: locs, storage: store, logger: logger}
}

// Get returns the profile with its locations.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	p.Locations, err = s.locations.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	if p.Locations == nil {
		p.Locations = []locations.Location{}
	}

	if p.ImageKey != "" && s.storage != nil {
		url, err := s.storage.GeneratePresignedDownloadURL(ctx, p.ImageKey, imageURLTTL)
		if err != nil {
			s.logger.Warn("Failed to sign profile image", "user_id", userID, "error", err)
		} else {
			p.ImageURL = url
		}
	}
	return p, nil
}

// Update applies the changes and returns the fresh profile.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, u Update) (*Profile, error) {
	if u.Gender != nil {
		switch *u.Gender {
		case "M", "F", "N":
		default:
			return nil, fmt.Errorf("%w: gender must be one of M, F, N", ErrValidation)
		}
	}
	if u.ImageKey != nil && *u.ImageKey != "" && !files.OwnedBy(*u.ImageKey, userID) {
		return nil, fmt.Errorf("%w: image was not uploaded by this user", ErrValidation)
	}

	if err := s.repo.Update(ctx, userID, u); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}
