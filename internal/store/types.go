package store

import "time"

type CreateUserInput struct {
	ID          string
	DisplayName string
	Avatar      string
}

type GetUserInput struct {
	UserID string
}

type ListUserGamesInput struct {
	UserID string
	Limit  int
}

// GameHistory is one players row joined with its games row.
type GameHistory struct {
	GameID      string
	Code        string
	Prompt      string
	CreatedAt   time.Time
	CompletedAt time.Time
	Team        int
	IsHost      bool
	Winner      bool
	Points      int
}

type ListUserGamesOutput struct {
	Games []*GameHistory
}

type LeaderboardInput struct {
	Limit int
}

type LeaderboardOutput struct {
	Users []*User
}

type RecordResultsInput struct {
	Game    *Game
	Players []*Player
}
