package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"salgados/config"
	"salgados/models"
	"salgados/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// statusNotifyWindow suppresses repeated customer messages for the same status.
const statusNotifyWindow = 30 * time.Second

type cardPointers interface {
	Get(ctx context.Context, orderID, audience string) (services.MessagePointer, bool, error)
	Upsert(ctx context.Context, orderID, audience string, ptr services.MessagePointer) error
	Forget(ctx context.Context, orderID string) error
}

type outboundLog interface {
	Save(ctx context.Context, m services.OutboundMessage) error
	SentWithin(ctx context.Context, orderID string, status models.OrderStatus, window time.Duration) (bool, error)
}

type pushChats interface {
	PushChat(ctx context.Context, userID string) int64
	RegisterPushChat(ctx context.Context, userID string, chatID int64) error
}

type orderAdvancer interface {
	Advance(ctx context.Context, id string, to models.OrderStatus) (*models.Order, error)
}

type orderLister interface {
	List(ctx context.Context) ([]models.Order, error)
}

// Deps are the services the bot reads from and drives.
type Deps struct {
	Pointers cardPointers
	Outbound outboundLog
	Users    pushChats
	Orders   orderLister
	Settings services.SettingsSource
}

// Bot pushes order cards to the admin chat and status messages to customers,
// and turns admin button presses into status changes.
type Bot struct {
	api       *tgbotapi.BotAPI
	adminChat int64
	trackURL  string
	deps      Deps
	workflow  orderAdvancer

	orderLocks sync.Map // map[orderID]*sync.Mutex
}

func New(cfg config.TelegramConfig, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return NewWithAPI(api, cfg, deps), nil
}

// NewWithAPI wraps an already connected client.
func NewWithAPI(api *tgbotapi.BotAPI, cfg config.TelegramConfig, deps Deps) *Bot {
	return &Bot{api: api, adminChat: cfg.AdminChatID, trackURL: cfg.TrackURL, deps: deps}
}

// SetWorkflow enables admin status buttons.
func (b *Bot) SetWorkflow(w orderAdvancer) {
	b.workflow = w
}

// cardMarkup converts OrderCardContent.Buttons to Telegram inline keyboard (URL vs callback).
func cardMarkup(c services.OrderCardContent) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			if btn.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
			}
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func isMessageGone(err error) bool {
	s := err.Error()
	return strings.Contains(s, "message to edit not found") || strings.Contains(s, "not found")
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "not modified")
}

// lockOrder serialises card edits for one order.
func (b *Bot) lockOrder(orderID string) func() {
	v, _ := b.orderLocks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// UpsertOrderCard edits the existing order card message if we have a pointer;
// otherwise, or when the old message is gone, it sends a new one and saves
// the pointer.
func (b *Bot) UpsertOrderCard(ctx context.Context, audience, orderID string, chatID int64, content services.OrderCardContent) {
	ptr, ok, err := b.deps.Pointers.Get(ctx, orderID, audience)
	if err != nil {
		log.Printf("bot: get card pointer order=%s audience=%s: %v", orderID, audience, err)
		return
	}
	if ok {
		edit := tgbotapi.NewEditMessageText(ptr.ChatID, ptr.MessageID, content.Text)
		if kb := cardMarkup(content); kb != nil {
			edit.ReplyMarkup = kb
		} else {
			edit.ReplyMarkup = &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
		}
		_, err := b.api.Send(edit)
		switch {
		case err == nil, isNotModified(err):
			return
		case isMessageGone(err):
			chatID = ptr.ChatID
		default:
			log.Printf("bot: edit card order=%s audience=%s: %v", orderID, audience, err)
			return
		}
	}

	msg := tgbotapi.NewMessage(chatID, content.Text)
	if kb := cardMarkup(content); kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("bot: send card order=%s audience=%s: %v", orderID, audience, err)
		return
	}
	if err := b.deps.Pointers.Upsert(ctx, orderID, audience, services.MessagePointer{ChatID: chatID, MessageID: sent.MessageID}); err != nil {
		log.Printf("bot: save card pointer order=%s audience=%s: %v", orderID, audience, err)
	}
}

func (b *Bot) trackLink(orderID string) string {
	if b.trackURL == "" {
		return ""
	}
	return fmt.Sprintf(b.trackURL, orderID)
}

// OrderPlaced posts the admin card and the customer's confirmation.
func (b *Bot) OrderPlaced(ctx context.Context, o *models.Order) {
	unlock := b.lockOrder(o.ID)
	defer unlock()

	if b.adminChat != 0 {
		b.UpsertOrderCard(ctx, services.AudienceAdmin, o.ID, b.adminChat, services.BuildAdminCard(o))
	}
	b.notifyCustomer(ctx, o)
}

// OrderStatusChanged refreshes the admin card and tells the customer.
func (b *Bot) OrderStatusChanged(ctx context.Context, o *models.Order) {
	unlock := b.lockOrder(o.ID)
	defer unlock()

	if b.adminChat != 0 {
		b.UpsertOrderCard(ctx, services.AudienceAdmin, o.ID, b.adminChat, services.BuildAdminCard(o))
	}
	b.notifyCustomer(ctx, o)

	if o.Status == models.StatusCompleted || o.Status == models.StatusRejected {
		if err := b.deps.Pointers.Forget(ctx, o.ID); err != nil {
			log.Printf("bot: forget card pointers order=%s: %v", o.ID, err)
		}
		b.orderLocks.Delete(o.ID)
	}
}

func (b *Bot) notifyCustomer(ctx context.Context, o *models.Order) {
	chatID := b.deps.Users.PushChat(ctx, o.UserID)
	if chatID == 0 {
		return
	}
	sent, err := b.deps.Outbound.SentWithin(ctx, o.ID, o.Status, statusNotifyWindow)
	if err != nil {
		log.Printf("bot: outbound lookup order=%s: %v", o.ID, err)
	}
	if sent {
		return
	}
	content := services.BuildCustomerCard(o, b.trackLink(o.ID))
	b.UpsertOrderCard(ctx, services.AudienceCustomer, o.ID, chatID, content)
	if err := b.deps.Outbound.Save(ctx, services.OutboundMessage{OrderID: o.ID, Status: o.Status, ChatID: chatID, Content: content.Text}); err != nil {
		log.Printf("bot: save outbound order=%s: %v", o.ID, err)
	}
}
