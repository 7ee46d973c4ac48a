package store

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/DoyleJ11/insane-brain-backend/internal/store Repository

import "context"

// Repository is the persistence collaborator behind user profiles, the
// leaderboard and finished games.
type Repository interface {
	// CreateUser inserts a new user with zero points.
	CreateUser(ctx context.Context, input *CreateUserInput) (*User, error)

	// GetUser reads one user by id.
	GetUser(ctx context.Context, input *GetUserInput) (*User, error)

	// ListUserGames returns the user's player rows joined with their game,
	// most recent game first.
	ListUserGames(ctx context.Context, input *ListUserGamesInput) (*ListUserGamesOutput, error)

	// Leaderboard returns users ordered by points.
	Leaderboard(ctx context.Context, input *LeaderboardInput) (*LeaderboardOutput, error)

	// RecordResults writes a finished game, its player rows and the point
	// deltas in one transaction. Recording the same game twice is a no-op.
	RecordResults(ctx context.Context, input *RecordResultsInput) error
}
