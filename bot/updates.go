package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"salgados/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "start", Description: "Ativar notificações de pedidos"},
			{Command: "stats", Description: "Resumo do dia (admin)"},
		},
	}
	_, err := b.api.Request(cfg)
	return err
}

// Start reads updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	if err := b.setBotCommands(); err != nil {
		log.Printf("bot: set commands: %v", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg.Chat.ID, strings.TrimSpace(msg.CommandArguments()))
	case "stats":
		b.handleStats(ctx, msg.Chat.ID, strings.TrimSpace(msg.CommandArguments()))
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("bot: send chat=%d: %v", chatID, err)
	}
}

// handleStart links a customer account to this chat. The storefront opens
// the bot with a deep link carrying the user id as the start parameter.
func (b *Bot) handleStart(ctx context.Context, chatID int64, userID string) {
	if userID == "" {
		b.send(chatID, "Abra este bot a partir da loja para receber notificações dos seus pedidos.")
		return
	}
	if err := b.deps.Users.RegisterPushChat(ctx, userID, chatID); err != nil {
		log.Printf("bot: register push chat user=%s: %v", userID, err)
		b.send(chatID, "Não foi possível ativar as notificações. Tente novamente.")
		return
	}
	b.send(chatID, "Notificações ativadas. Vamos avisar aqui sempre que o seu pedido mudar de estado.")
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	orderID, to, ok := services.ParseOrderStatusCallback(cq.Data)
	if !ok {
		b.answer(cq.ID, "")
		return
	}
	if cq.Message == nil || cq.Message.Chat.ID != b.adminChat || b.workflow == nil {
		b.answer(cq.ID, "Sem permissão")
		return
	}
	if _, err := b.workflow.Advance(ctx, orderID, to); err != nil {
		log.Printf("bot: advance order=%s to=%s: %v", orderID, to, err)
		if errors.Is(err, services.ErrInvalidTransition) {
			b.answer(cq.ID, "Mudança de estado inválida")
			return
		}
		b.answer(cq.ID, "Erro, tente novamente")
		return
	}
	b.answer(cq.ID, string(to))
}

// answer sends a short toast for the callback (no new message).
func (b *Bot) answer(callbackQueryID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackQueryID, text)); err != nil {
		log.Printf("bot: answer callback: %v", err)
	}
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, date string) {
	if chatID != b.adminChat {
		return
	}
	settings := b.deps.Settings.Current()
	if settings == nil {
		return
	}
	if date == "" {
		date = services.StoreLocalNow(settings.Timezone, time.Now()).Format("2006-01-02")
	}
	orders, err := b.deps.Orders.List(ctx)
	if err != nil {
		log.Printf("bot: stats list orders: %v", err)
		b.send(chatID, "Erro ao carregar pedidos.")
		return
	}
	s, err := services.DailyStats(orders, date, settings.Timezone)
	if err != nil {
		b.send(chatID, "Data inválida, use AAAA-MM-DD.")
		return
	}
	b.send(chatID, fmt.Sprintf(
		"📊 %s\nPedidos: %d (agendados: %d)\nProdutos: %s €\nDescontos: -%s €\nEntregas: %s €\nTotal: %s €",
		s.Date, s.OrdersCount, s.ScheduledCount,
		s.ItemsRevenue.StringFixed(2), s.DiscountTotal.StringFixed(2),
		s.DeliveryRevenue.StringFixed(2), s.GrandRevenue.StringFixed(2),
	))
}
