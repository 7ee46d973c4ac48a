package store

import "context"

// Unavailable is used when no database is configured. Every call fails with
// ErrPersistenceUnavailable; live sessions keep working without it.
type Unavailable struct{}

func (Unavailable) CreateUser(context.Context, *CreateUserInput) (*User, error) {
	return nil, ErrPersistenceUnavailable
}

func (Unavailable) GetUser(context.Context, *GetUserInput) (*User, error) {
	return nil, ErrPersistenceUnavailable
}

func (Unavailable) ListUserGames(context.Context, *ListUserGamesInput) (*ListUserGamesOutput, error) {
	return nil, ErrPersistenceUnavailable
}

func (Unavailable) Leaderboard(context.Context, *LeaderboardInput) (*LeaderboardOutput, error) {
	return nil, ErrPersistenceUnavailable
}

func (Unavailable) RecordResults(context.Context, *RecordResultsInput) error {
	return ErrPersistenceUnavailable
}
