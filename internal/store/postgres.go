package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	defaultHistoryLimit     = 20
	defaultLeaderboardLimit = 10
	maxLimit                = 100
)

type Config struct {
	DB *gorm.DB
}

type postgresRepository struct {
	db *gorm.DB
}

// Open connects to PostgreSQL and migrates the schema.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, unavailable("open", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&User{}, &Game{}, &Player{}); err != nil {
		return nil, unavailable("migrate", err)
	}
	return db, nil
}

func NewPostgres(cfg *Config) (*postgresRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.DB == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &postgresRepository{db: cfg.DB}, nil
}

func (r *postgresRepository) CreateUser(ctx context.Context, input *CreateUserInput) (*User, error) {
	if input == nil || input.ID == "" {
		return nil, errors.New("user id is required")
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		return nil, errors.New("display name is required")
	}
	u := &User{ID: input.ID, DisplayName: strings.TrimSpace(input.DisplayName), Avatar: input.Avatar}
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, unavailable("create user", err)
	}
	return u, nil
}

func (r *postgresRepository) GetUser(ctx context.Context, input *GetUserInput) (*User, error) {
	if input == nil || input.UserID == "" {
		return nil, ErrUserNotFound
	}
	var u User
	err := r.db.WithContext(ctx).First(&u, "id = ?", input.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}
	return &u, nil
}

func (r *postgresRepository) ListUserGames(ctx context.Context, input *ListUserGamesInput) (*ListUserGamesOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, ErrUserNotFound
	}
	var rows []*GameHistory
	err := r.db.WithContext(ctx).
		Table("players").
		Select("players.game_id, games.code, games.prompt, games.created_at, games.completed_at, " +
			"players.team, players.is_host, players.winner, players.points").
		Joins("JOIN games ON games.id = players.game_id").
		Where("players.user_id = ?", input.UserID).
		Order("games.completed_at DESC").
		Limit(clampLimit(input.Limit, defaultHistoryLimit)).
		Scan(&rows).Error
	if err != nil {
		return nil, unavailable("list user games", err)
	}
	return &ListUserGamesOutput{Games: rows}, nil
}

func (r *postgresRepository) Leaderboard(ctx context.Context, input *LeaderboardInput) (*LeaderboardOutput, error) {
	limit := defaultLeaderboardLimit
	if input != nil {
		limit = clampLimit(input.Limit, defaultLeaderboardLimit)
	}
	var users []*User
	err := r.db.WithContext(ctx).
		Order("points DESC").
		Order("display_name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, unavailable("leaderboard", err)
	}
	return &LeaderboardOutput{Users: users}, nil
}

func (r *postgresRepository) RecordResults(ctx context.Context, input *RecordResultsInput) error {
	if input == nil || input.Game == nil || input.Game.ID == "" {
		return errors.New("game is required")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(input.Game)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already recorded
		}
		for _, p := range input.Players {
			p.GameID = input.Game.ID
			if err := tx.Omit("Game").Create(p).Error; err != nil {
				return fmt.Errorf("player %s: %w", p.UserID, err)
			}
			if p.Points == 0 {
				continue
			}
			err := tx.Model(&User{}).
				Where("id = ?", p.UserID).
				Update("points", gorm.Expr("points + ?", p.Points)).Error
			if err != nil {
				return fmt.Errorf("points for %s: %w", p.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("record results", err)
	}
	return nil
}

func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
