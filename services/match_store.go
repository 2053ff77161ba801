// services/match_store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"naval-combat-server/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrPlayerNotFound = errors.New("player not found")
)

// MatchStore is the persistence the game loop depends on.
type MatchStore interface {
	LoadMatch(ctx context.Context, id string) (*models.Match, error)
	SaveMatch(ctx context.Context, m *models.Match) error
	CreateMatch(ctx context.Context, m *models.Match) error
	// UpdateMatch loads the match under a row lock, hands it to fn and
	// saves it if fn reports a change. An error from fn rolls back.
	UpdateMatch(ctx context.Context, id string, fn func(m *models.Match) (bool, error)) (*models.Match, error)
	ActiveMatches(ctx context.Context) ([]models.Match, error)

	LoadPlayer(ctx context.Context, id string) (*models.Player, error)
	UpsertPlayer(ctx context.Context, p models.Player) error
	LastPlayerUpdate(ctx context.Context) (time.Time, error)
}

type GormMatchStore struct {
	DB *gorm.DB
}

func NewGormMatchStore(db *gorm.DB) *GormMatchStore {
	return &GormMatchStore{DB: db}
}

// AutoMigrate creates or updates the tables the store uses.
func (s *GormMatchStore) AutoMigrate() error {
	return s.DB.AutoMigrate(&models.Player{}, &models.Match{})
}

func (s *GormMatchStore) LoadMatch(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	if err := s.DB.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("load match %s: %w", id, err)
	}
	return &m, nil
}

func (s *GormMatchStore) SaveMatch(ctx context.Context, m *models.Match) error {
	if err := s.DB.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}
	return nil
}

func (s *GormMatchStore) CreateMatch(ctx context.Context, m *models.Match) error {
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

func (s *GormMatchStore) UpdateMatch(ctx context.Context, id string, fn func(m *models.Match) (bool, error)) (*models.Match, error) {
	var m models.Match
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		// SQLite has no row locks; the whole database is locked by the write instead.
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("lock match %s: %w", id, err)
		}

		changed, err := fn(&m)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if err := tx.Save(&m).Error; err != nil {
			return fmt.Errorf("save match %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *GormMatchStore) ActiveMatches(ctx context.Context) ([]models.Match, error) {
	var matches []models.Match
	if err := s.DB.WithContext(ctx).
		Where("ended_at IS NULL").
		Order("created_at ASC").
		Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	return matches, nil
}

func (s *GormMatchStore) LoadPlayer(ctx context.Context, id string) (*models.Player, error) {
	var p models.Player
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("load player %s: %w", id, err)
	}
	return &p, nil
}

// UpsertPlayer inserts p or refreshes the login and updated_at of the row
// with the same id. A login held by another id fails the write.
func (s *GormMatchStore) UpsertPlayer(ctx context.Context, p models.Player) error {
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"login", "updated_at"}),
	}).Create(&p).Error; err != nil {
		return fmt.Errorf("upsert player %s: %w", p.ID, err)
	}
	return nil
}

// LastPlayerUpdate returns the newest updated_at among mirrored players,
// or the zero time when none exist.
func (s *GormMatchStore) LastPlayerUpdate(ctx context.Context) (time.Time, error) {
	var p models.Player
	err := s.DB.WithContext(ctx).Order("updated_at DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last player update: %w", err)
	}
	return p.UpdatedAt, nil
}
