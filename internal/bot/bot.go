// Package bot is the Telegram front end: lesson units, review sessions,
// quizzes and reminders.
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/chirpolly/internal/content"
	"github.com/example/chirpolly/internal/database"
	"github.com/example/chirpolly/internal/logger"
	"github.com/example/chirpolly/internal/quiz"
	"github.com/example/chirpolly/internal/review"
	"github.com/example/chirpolly/internal/scheduler"
	"github.com/example/chirpolly/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Users stores learner profiles and reminder settings.
type Users interface {
	GetByID(ctx context.Context, id int64) (models.User, error)
	Upsert(ctx context.Context, user models.User) error
	SetNotificationHour(ctx context.Context, id int64, hour int, enabled bool) error
	SetLanguage(ctx context.Context, id int64, language string) error
	SetWordsPerDay(ctx context.Context, id int64, n int) error
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Review  *review.Service
	Users   Users
	Catalog *content.Catalog
	Quiz    *quiz.Builder
	Log     *logger.Logger
	Clock   func() time.Time
}

// pendingQuiz is a question waiting for the learner's answer.
type pendingQuiz struct {
	question quiz.Question
	askedAt  time.Time
}

// Bot represents the Telegram bot
type Bot struct {
	api     telegramAPI
	cfg     Config
	review  *review.Service
	users   Users
	catalog *content.Catalog
	quiz    *quiz.Builder
	log     *logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	quizzes map[int64]pendingQuiz
}

var _ scheduler.Notifier = (*Bot)(nil)

// New connects to Telegram with token and creates the bot.
func New(token string, cfg Config, d Deps) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b, err := newBot(botAPI, cfg, d)
	if err != nil {
		return nil, err
	}
	b.log.Info("authorized on account", "username", botAPI.Self.UserName)
	return b, nil
}

func newBot(api telegramAPI, cfg Config, d Deps) (*Bot, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch {
	case d.Review == nil:
		return nil, errors.New("bot: review service required")
	case d.Users == nil:
		return nil, errors.New("bot: user repository required")
	case d.Catalog == nil:
		return nil, errors.New("bot: catalog required")
	}
	if d.Quiz == nil {
		d.Quiz = quiz.NewBuilder(quiz.DefaultConfig(), rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return &Bot{
		api:     api,
		cfg:     cfg,
		review:  d.Review,
		users:   d.Users,
		catalog: d.Catalog,
		quiz:    d.Quiz,
		log:     d.Log.With("service", "bot"),
		now:     d.Clock,
		quizzes: make(map[int64]pendingQuiz),
	}, nil
}

// Start receives updates until ctx is done. Each update is handled in its
// own goroutine.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.cfg.UpdateTimeout

	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info("bot started")

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// SendReminder implements the scheduler.Notifier interface. For private chats
// the Telegram user ID is the chat ID.
func (b *Bot) SendReminder(ctx context.Context, learnerID int64, due int) error {
	if _, err := b.users.GetByID(ctx, learnerID); err != nil {
		return err
	}
	text := fmt.Sprintf("⏰ You have %d %s to review!", due, plural(due, "word", "words"))
	msg := tgbotapi.NewMessage(learnerID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🔁 Start review", CallbackData: callbackReview}},
	})
	if err := b.sendMessage(msg); err != nil {
		return fmt.Errorf("failed to send reminder to %d: %w", learnerID, err)
	}
	b.log.Info("reminder sent", "learner_id", learnerID, "due", due)
	return nil
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var (
		err    error
		chatID int64
	)
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		chatID = update.Message.Chat.ID
		if update.Message.IsCommand() {
			err = b.HandleCommand(ctx, update.Message)
		} else {
			err = b.sendMessage(b.withMenu(chatID, "I don't understand. Use /help to see what I can do."))
		}
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID = update.CallbackQuery.Message.Chat.ID
		err = b.HandleCallback(ctx, update.CallbackQuery)
	default:
		return
	}
	if err != nil {
		b.log.Error("failed to handle update", "update_id", update.UpdateID, "chat_id", chatID, "error", err)
		if sendErr := b.sendMessage(tgbotapi.NewMessage(chatID, "❌ Something went wrong. Please try again later.")); sendErr != nil {
			b.log.Warn("failed to report error", "chat_id", chatID, "error", sendErr)
		}
	}
}

// MainMenuButtons returns the main menu layout
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "🔁 Review", CallbackData: callbackReview}, {Text: "❓ Quiz", CallbackData: callbackQuiz}},
		{{Text: "📚 Units", CallbackData: callbackUnits}, {Text: "📊 Statistics", CallbackData: callbackStats}},
		{{Text: "ℹ️ Help", CallbackData: callbackHelp}},
	}
}

func (b *Bot) withMenu(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return msg
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	_, err := b.api.Send(msg)
	return err
}

// learner returns the profile of a Telegram user, creating it on first contact.
func (b *Bot) learner(ctx context.Context, from *tgbotapi.User) (models.User, error) {
	user, err := b.users.GetByID(ctx, from.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return models.User{}, err
	}
	user = models.User{
		ID:                  from.ID,
		Username:            from.UserName,
		FirstName:           from.FirstName,
		NotificationEnabled: true,
		NotificationHour:    b.cfg.DefaultNotificationHour,
	}
	if codes := b.catalog.LanguageCodes(); len(codes) > 0 {
		user.Language = codes[0]
	}
	if err := b.users.Upsert(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return b.users.GetByID(ctx, from.ID)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
