package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UploadedFile struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectId        uuid.UUID      `gorm:"type:uuid;not null;index"`
	Filename         string         `gorm:"type:varchar(255);not null"`
	OriginalFilename string         `gorm:"type:varchar(255);not null"`
	FileSize         int64          `gorm:"not null"`
	FileType         string         `gorm:"type:varchar(20);not null"`
	ProviderFileId   *string        `gorm:"type:varchar(255)"`
	ContextPreview   *string        `gorm:"type:text"`
	Metadata         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (UploadedFile) TableName() string {
	return "uploaded_files"
}
