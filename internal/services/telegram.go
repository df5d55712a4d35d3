package services

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/logger"
	"rifa-web-app/internal/models"
)

// TelegramNotifier delivers purchase notices over Telegram: new
// submissions to the staff channel, outcomes to the buyer's linked chat.
// The underlying HTTP client carries a short timeout so a dead Telegram
// API can never stall an approval.
type TelegramNotifier struct {
	bot         *tgbotapi.BotAPI
	staffChatID int64
	log         *logger.Logger
}

func NewTelegramNotifier(token string, staffChatID int64, log *logger.Logger) (*TelegramNotifier, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	log.Infof("Telegram bot authorized as %s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, staffChatID: staffChatID, log: log}, nil
}

func (t *TelegramNotifier) PurchaseSubmitted(req *models.PurchaseRequest, raffle *models.Raffle) error {
	text := fmt.Sprintf("🎟️ *Nueva solicitud de compra*\n👤 %s (CI %s)\n🎫 %d tickets de %q\n💰 %s %s\n💳 Ref: %s",
		req.FullName, req.NationalID, req.TicketQty, raffle.Title,
		req.Amount.StringFixed(2), raffle.Currency, req.Reference)
	return t.sendToStaff(text)
}

func (t *TelegramNotifier) PurchaseApproved(req *models.PurchaseRequest, raffle *models.Raffle) error {
	staffText := fmt.Sprintf("✅ Solicitud %s aprobada: %d tickets de %q para %s",
		req.ID, req.TicketQty, raffle.Title, req.FullName)
	staffErr := t.sendToStaff(staffText)

	if req.TelegramChatID != 0 {
		buyerText := fmt.Sprintf("✅ *¡Pago confirmado!*\nTus números para %q son:\n🎫 %s\n\n¡Mucha suerte!",
			raffle.Title, formatNumbers(req.AssignedNumbers))
		if err := t.send(req.TelegramChatID, buyerText); err != nil {
			return err
		}
	}
	return staffErr
}

func (t *TelegramNotifier) PurchaseRejected(req *models.PurchaseRequest, raffle *models.Raffle) error {
	if req.TelegramChatID == 0 {
		return nil
	}
	text := fmt.Sprintf("❌ Tu pago para %q (ref %s) no pudo ser verificado. Revisa los datos y vuelve a intentarlo.",
		raffle.Title, req.Reference)
	return t.send(req.TelegramChatID, text)
}

func (t *TelegramNotifier) sendToStaff(text string) error {
	if t.staffChatID == 0 {
		t.log.Debug("Staff chat not configured, skipping notice")
		return nil
	}
	return t.send(t.staffChatID, text)
}

func (t *TelegramNotifier) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return &apperrors.UpstreamFailure{Service: "telegram", Err: err}
	}
	return nil
}

func formatNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
