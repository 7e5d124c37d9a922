package entity

import (
	"time"

	"github.com/google/uuid"
)

type UploadedFile struct {
	Id               uuid.UUID
	ProjectId        uuid.UUID
	Filename         string
	OriginalFilename string
	FileSize         int64
	FileType         string
	ProviderFileId   *string
	ContextPreview   *string
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	DeletedAt        *time.Time
	IsDeleted        bool
}
