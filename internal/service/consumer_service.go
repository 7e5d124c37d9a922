package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"

	"ai-agenthub-be/pkg/events"
	pktNats "ai-agenthub-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// contextPreviewLimit caps how much of a text file ends up in chat context.
const contextPreviewLimit = 2048

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
	uploadDir      string
}

func NewConsumerService(
	cfg *config.Config,
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		uploadDir:      cfg.Uploads.Dir,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.ProcessFileMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Extracting context for FileId: %s", payload.FileId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	file, err := uow.UploadedFileRepository().FindOne(ctx, specification.ByID{ID: payload.FileId})
	if err != nil {
		log.Printf("[ERROR] Failed to get file %s: %v", payload.FileId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if file == nil {
		log.Printf("[ERROR] File not found: %s", payload.FileId)
		msg.Ack() // File deleted before processing? Ack.
		return
	}

	preview := cs.extractPreview(file.FileType, file.OriginalFilename,
		filepath.Join(cs.uploadDir, file.ProjectId.String(), file.Filename))

	now := time.Now()
	file.ContextPreview = &preview
	file.UpdatedAt = &now

	if err := uow.UploadedFileRepository().Update(ctx, file); err != nil {
		log.Printf("[ERROR] Failed to store context preview for %s: %v", payload.FileId, err)
		msg.Nack()
		return
	}

	if cs.eventPublisher != nil {
		data := map[string]interface{}{
			"file_id":    file.Id,
			"project_id": file.ProjectId,
			"filename":   file.OriginalFilename,
		}
		// The owner is the notification recipient.
		if project, err := uow.ProjectRepository().FindOne(ctx, specification.ByID{ID: file.ProjectId}); err == nil && project != nil {
			data["user_id"] = project.UserId
		}
		evt := events.BaseEvent{
			Type:       events.TypeFileProcessed,
			Data:       data,
			OccurredAt: time.Now(),
		}
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			fmt.Printf("[WARN] Failed to publish FILE_PROCESSED event: %v\n", err)
		}
	}

	log.Printf("[SUCCESS] Context extracted for FileId: %s (%d chars)", payload.FileId, len(preview))
	msg.Ack()
}

// extractPreview builds the chat context snippet for a file. Plain text gets
// its leading bytes, other types a short notice so the model knows the file
// exists.
func (cs *consumerService) extractPreview(fileType, originalName, localPath string) string {
	switch fileType {
	case "txt":
		f, err := os.Open(localPath)
		if err != nil {
			log.Printf("[WARN] Cannot open %s for preview: %v", localPath, err)
			return fmt.Sprintf("[attached file: %s]", originalName)
		}
		defer f.Close()

		buf := make([]byte, contextPreviewLimit)
		n, _ := f.Read(buf)
		text := string(buf[:n])
		// Drop a trailing partial rune from the cut.
		for n > 0 && !utf8.ValidString(text) {
			n--
			text = string(buf[:n])
		}
		return strings.TrimSpace(text)
	case "png", "jpg", "jpeg", "gif":
		return fmt.Sprintf("[attached image: %s]", originalName)
	default:
		return fmt.Sprintf("[attached document: %s]", originalName)
	}
}
