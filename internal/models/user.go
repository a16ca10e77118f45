package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk"`
	Email     string    `bun:"email,unique,notnull"`
	FirstName string    `bun:"first_name,notnull"`
	LastName  string    `bun:"last_name,notnull"`
	AvatarURL string    `bun:"avatar_url"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

const (
	FriendshipPending  = "PENDING"
	FriendshipAccepted = "ACCEPTED"
)

type Friendship struct {
	bun.BaseModel `bun:"table:friendships"`

	ID          int64     `bun:"id,pk,autoincrement"`
	RequesterID string    `bun:"requester_id,notnull"`
	AddresseeID string    `bun:"addressee_id,notnull"`
	Status      string    `bun:"status,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

type FriendResponse struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
