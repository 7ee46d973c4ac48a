package store

import "time"

type User struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	DisplayName string    `json:"display_name" gorm:"not null"`
	Avatar      string    `json:"avatar" gorm:"not null"`
	Points      int       `json:"points" gorm:"not null;default:0;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Game struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	Code        string    `json:"code" gorm:"not null;index"`
	Prompt      string    `json:"prompt" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at" gorm:"index"`
	WinningTeam *int      `json:"winning_team"` // nil on a tie
	Tie         bool      `json:"tie" gorm:"not null;default:false"`
	StoryA      string    `json:"story_a" gorm:"type:text"`
	StoryB      string    `json:"story_b" gorm:"type:text"`
}

func (Game) TableName() string { return "games" }

// Player links a user to a game they played. Guests without an account
// have no row.
type Player struct {
	UserID string `json:"user_id" gorm:"primaryKey;type:uuid"`
	GameID string `json:"game_id" gorm:"primaryKey;type:uuid;index"`
	IsHost bool   `json:"is_host" gorm:"not null;default:false"`
	Winner bool   `json:"winner" gorm:"not null;default:false"`
	Team   int    `json:"team" gorm:"not null"`
	Points int    `json:"points" gorm:"not null;default:0"`

	Game Game `json:"-" gorm:"foreignKey:GameID"`
}

func (Player) TableName() string { return "players" }
