package models

import "time"

type Template struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	HTML      string    `db:"html" json:"html"`
	PageCount int       `db:"page_count" json:"page_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
