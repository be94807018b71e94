package locations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/cache"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
)

// Service defines the location operations exposed to handlers.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, fields Fields, requestedDefault bool) (*Location, error)
	SetDefault(ctx context.Context, ownerID, id uuid.UUID) (*Location, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Update(ctx context.Context, ownerID, id uuid.UUID, update Update) (*Location, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]Location, error)
	Default(ctx context.Context, ownerID uuid.UUID) (*Location, error)
	MaxPerOwner() int
}

type service struct {
	store       Store
	cache       *cache.Cache
	maxPerOwner int
	cacheTTL    time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewService creates the location service. A nil cache disables list caching.
func NewService(store Store, c *cache.Cache, cfg config.LocationConfig, logger *slog.Logger) Service {
	return &service{
		store:       store,
		cache:       c,
		maxPerOwner: cfg.MaxPerOwner,
		cacheTTL:    cfg.CacheTTL,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *service) MaxPerOwner() int {
	return s.maxPerOwner
}

func (s *service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create adds a location. The owner's first location is always the default;
// otherwise requestedDefault moves the default to the new location. An owner
// left without a default by earlier data also gets the new one as default.
func (s *service) Create(ctx context.Context, ownerID uuid.UUID, fields Fields, requestedDefault bool) (*Location, error) {
	fields, err := fields.normalize()
	if err != nil {
		return nil, err
	}

	var created *Location
	err = s.store.WithOwnerLock(ctx, ownerID, func(tx Tx) error {
		existing, err := tx.List(ctx, ownerID)
		if err != nil {
			return err
		}
		if len(existing) >= s.maxPerOwner {
			return fmt.Errorf("%w: maximum of %d locations", ErrLimitExceeded, s.maxPerOwner)
		}

		isDefault := requestedDefault || !hasDefault(existing)
		if isDefault && len(existing) > 0 {
			if err := tx.ClearDefault(ctx, ownerID); err != nil {
				return err
			}
		}

		now := s.timestamp()
		l := &Location{
			ID:         uuid.New(),
			OwnerID:    ownerID,
			Country:    fields.Country,
			State:      fields.State,
			District:   fields.District,
			PostalCode: fields.PostalCode,
			IsDefault:  isDefault,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Insert(ctx, l); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ownerID)
	s.logger.Info("Location created",
		"owner_id", ownerID,
		"location_id", created.ID,
		"is_default", created.IsDefault)
	return created, nil
}

// SetDefault makes id the owner's only default location.
func (s *service) SetDefault(ctx context.Context, ownerID, id uuid.UUID) (*Location, error) {
	var target *Location
	err := s.store.WithOwnerLock(ctx, ownerID, func(tx Tx) error {
		existing, err := tx.List(ctx, ownerID)
		if err != nil {
			return err
		}
		target = find(existing, id)
		if target == nil {
			return ErrNotFound
		}
		if target.IsDefault {
			return nil
		}

		if err := tx.ClearDefault(ctx, ownerID); err != nil {
			return err
		}
		now := s.timestamp()
		if err := tx.MarkDefault(ctx, ownerID, id, now); err != nil {
			return err
		}
		target.IsDefault = true
		target.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ownerID)
	return target, nil
}

// Delete removes a location. The last location cannot be deleted; deleting
// the default promotes the oldest remaining location.
func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	var promoted *Location
	err := s.store.WithOwnerLock(ctx, ownerID, func(tx Tx) error {
		existing, err := tx.List(ctx, ownerID)
		if err != nil {
			return err
		}
		target := find(existing, id)
		if target == nil {
			return ErrNotFound
		}
		if len(existing) == 1 {
			return ErrLastAddress
		}

		if err := tx.Delete(ctx, ownerID, id); err != nil {
			return err
		}
		if !target.IsDefault {
			return nil
		}

		for i := range existing {
			if existing[i].ID != id {
				promoted = &existing[i]
				break
			}
		}
		return tx.MarkDefault(ctx, ownerID, promoted.ID, s.timestamp())
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, ownerID)
	if promoted != nil {
		s.logger.Info("Default location promoted after delete",
			"owner_id", ownerID,
			"location_id", promoted.ID)
	}
	return nil
}

// Update changes the editable fields of a location. It never changes which
// location is the default.
func (s *service) Update(ctx context.Context, ownerID, id uuid.UUID, update Update) (*Location, error) {
	var updated *Location
	err := s.store.WithOwnerLock(ctx, ownerID, func(tx Tx) error {
		existing, err := tx.List(ctx, ownerID)
		if err != nil {
			return err
		}
		target := find(existing, id)
		if target == nil {
			return ErrNotFound
		}

		update.apply(target)
		fields, err := fieldsOf(target).normalize()
		if err != nil {
			return err
		}
		target.Country = fields.Country
		target.State = fields.State
		target.District = fields.District
		target.PostalCode = fields.PostalCode
		target.UpdatedAt = s.timestamp()

		if err := tx.UpdateFields(ctx, target); err != nil {
			return err
		}
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ownerID)
	return updated, nil
}

// List returns the owner's locations oldest first. Cached lists are keyed by
// the owner's cache generation, read before the database, so a list loaded
// while a write commits lands under a generation the write has retired.
func (s *service) List(ctx context.Context, ownerID uuid.UUID) ([]Location, error) {
	gen, cacheable := s.cache.Version(ctx, versionKey(ownerID))
	key := cacheKey(ownerID, gen)

	var cached []Location
	if cacheable && s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	locations, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.cache.Set(ctx, key, locations, s.cacheTTL)
	}
	return locations, nil
}

// Default returns the owner's default location.
func (s *service) Default(ctx context.Context, ownerID uuid.UUID) (*Location, error) {
	return s.store.Default(ctx, ownerID)
}

func (s *service) invalidate(ctx context.Context, ownerID uuid.UUID) {
	s.cache.Bump(ctx, versionKey(ownerID))
}

func versionKey(ownerID uuid.UUID) string {
	return "locations:user:" + ownerID.String() + ":version"
}

func cacheKey(ownerID uuid.UUID, gen int64) string {
	return fmt.Sprintf("locations:user:%s:v%d", ownerID, gen)
}

func hasDefault(locations []Location) bool {
	for _, l := range locations {
		if l.IsDefault {
			return true
		}
	}
	return false
}

func find(locations []Location, id uuid.UUID) *Location {
	for i := range locations {
		if locations[i].ID == id {
			return &locations[i]
		}
	}
	return nil
}
