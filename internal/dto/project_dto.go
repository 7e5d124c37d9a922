package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateProjectRequest struct {
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

type CreateProjectResponse struct {
	Id uuid.UUID `json:"id"`
}

type UpdateProjectRequest struct {
	Id           uuid.UUID
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	SystemPrompt string `json:"system_prompt"`
}

type UpdateProjectResponse struct {
	Id uuid.UUID `json:"id"`
}

type ProjectListItem struct {
	Id           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	SessionCount int64      `json:"session_count"`
	FileCount    int64      `json:"file_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type ShowProjectResponse struct {
	Id             uuid.UUID                `json:"id"`
	Name           string                   `json:"name"`
	Description    string                   `json:"description"`
	SystemPrompt   string                   `json:"system_prompt"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      *time.Time               `json:"updated_at"`
	RecentSessions []GetAllSessionsResponse `json:"recent_sessions"`
}

type CreatePromptRequest struct {
	ProjectId uuid.UUID
	Title     string `json:"title" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

type CreatePromptResponse struct {
	Id uuid.UUID `json:"id"`
}

type UpdatePromptRequest struct {
	Id        uuid.UUID
	ProjectId uuid.UUID
	Title     string `json:"title" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

type UpdatePromptResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowPromptResponse struct {
	Id        uuid.UUID  `json:"id"`
	ProjectId uuid.UUID  `json:"project_id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
