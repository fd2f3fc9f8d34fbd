package handler

import (
	"context"
	"path"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/studykit/chemtutor/internal/domain"
	"github.com/studykit/chemtutor/internal/ingest"
	tg "github.com/studykit/chemtutor/internal/telegram"
)

// ingestAttachment turns the message's photo or document into a
// TransferFile. Returns nil when the message carries no attachment.
func (h *Handler) ingestAttachment(ctx context.Context, b *bot.Bot, msg *models.Message) (*domain.TransferFile, error) {
	switch {
	case len(msg.Photo) > 0:
		// Highest resolution variant is last.
		photo := msg.Photo[len(msg.Photo)-1]
		data, filePath, err := tg.DownloadFile(ctx, b, photo.FileID)
		if err != nil {
			return nil, err
		}
		name := path.Base(filePath)
		if name == "" || name == "." {
			name = "photo.jpg"
		}
		return ingest.FromBytes(data, name, "image/jpeg")

	case msg.Document != nil:
		data, _, err := tg.DownloadFile(ctx, b, msg.Document.FileID)
		if err != nil {
			return nil, err
		}
		name := msg.Document.FileName
		if name == "" {
			name = "document"
		}
		return ingest.FromBytes(data, name, msg.Document.MimeType)
	}

	return nil, nil
}
