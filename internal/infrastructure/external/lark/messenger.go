package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
)

// MessageSender sends a raw IM message
type MessageSender interface {
	SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

// Messenger implements port.Notifier with Lark text messages
type Messenger struct {
	sender MessageSender
	logger *zap.Logger
}

// NewMessenger creates a new Lark notifier
func NewMessenger(sender MessageSender, logger *zap.Logger) *Messenger {
	return &Messenger{
		sender: sender,
		logger: logger,
	}
}

// Notify sends title and message as one text message to the recipient's open id
func (m *Messenger) Notify(ctx context.Context, to port.Recipient, title, message string) error {
	if to.LarkOpenID == "" {
		return fmt.Errorf("recipient %s has no lark open id", to.UserID)
	}

	text := strings.TrimSpace(title + "\n" + message)
	if text == "" {
		return fmt.Errorf("message cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	messageID, err := m.sender.SendMessage(ctx, "open_id", to.LarkOpenID, "text", string(content))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	m.logger.Info("Lark notification sent",
		zap.String("user_id", to.UserID),
		zap.String("message_id", messageID))
	return nil
}

var _ port.Notifier = (*Messenger)(nil)
