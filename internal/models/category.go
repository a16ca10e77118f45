package models

import "github.com/uptrace/bun"

type EventCategory struct {
	bun.BaseModel `bun:"table:event_categories,alias:c"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull,unique" json:"name"`
}
