package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadFileResponse struct {
	Id               uuid.UUID `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FileSize         int64     `json:"file_size"`
	FileType         string    `json:"file_type"`
	ProviderFileId   *string   `json:"provider_file_id,omitempty"`
}

// ProcessFileMessage is the queue payload asking the consumer to extract
// chat context from an uploaded file.
type ProcessFileMessage struct {
	FileId uuid.UUID `json:"file_id"`
}

type FileListItem struct {
	Id               uuid.UUID `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FileSize         int64     `json:"file_size"`
	FileType         string    `json:"file_type"`
	ProviderFileId   *string   `json:"provider_file_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
