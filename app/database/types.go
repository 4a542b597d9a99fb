package database

import (
	"time"
)

type Issue struct {
	ID        int64     `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Body      *string   `json:"body" yaml:"body,omitempty"` // nil when the issue has no body
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

func (i Issue) BodyText() string {
	if i.Body == nil {
		return ""
	}
	return *i.Body
}
