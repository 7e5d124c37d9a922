package entity

import (
	"time"

	"github.com/google/uuid"
)

type Prompt struct {
	Id        uuid.UUID
	ProjectId uuid.UUID
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
