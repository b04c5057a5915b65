package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/chirpolly/internal/content"
	"github.com/example/chirpolly/internal/quiz"
	"github.com/example/chirpolly/internal/review"
	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

const (
	callbackMainMenu = "main_menu"
	callbackReview   = "review"
	callbackQuiz     = "quiz"
	callbackUnits    = "units"
	callbackStats    = "stats"
	callbackHelp     = "help"

	prefixShow  = "show:"
	prefixRate  = "rate:"
	prefixQuiz  = "quiz:"
	prefixLearn = "learn:"

	// Telegram rejects longer callback data
	maxCallbackData = 64

	maxWordsPerDay = 200
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message == nil || message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}
	user, err := b.learner(ctx, message.From)
	if err != nil {
		return err
	}
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		return b.handleStart(chatID, user)
	case "help", "menu":
		return b.handleHelp(chatID)
	case "languages":
		return b.handleLanguages(chatID, user)
	case "lang":
		return b.handleLanguage(ctx, chatID, user, args)
	case "units":
		return b.handleUnits(ctx, chatID, user)
	case "learn":
		return b.handleLearn(ctx, chatID, user, args)
	case "review":
		return b.handleReview(ctx, chatID, user)
	case "quiz":
		kind := quiz.MultipleChoice
		if strings.EqualFold(args, "reverse") {
			kind = quiz.ReverseChoice
		}
		return b.handleQuiz(ctx, chatID, user, kind)
	case "stats":
		return b.handleStats(ctx, chatID, user)
	case "notify":
		return b.handleNotify(ctx, chatID, user, args)
	case "words":
		return b.handleWordsPerDay(ctx, chatID, user, args)
	default:
		return b.sendMessage(b.withMenu(chatID, "Unknown command. Use /help to see what I can do."))
	}
}

// HandleCallback handles inline button presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.From == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always answer the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}

	user, err := b.learner(ctx, callback.From)
	if err != nil {
		return err
	}
	chatID := callback.Message.Chat.ID

	switch callback.Data {
	case callbackMainMenu:
		return b.sendMessage(b.withMenu(chatID, "Main menu"))
	case callbackReview:
		return b.handleReview(ctx, chatID, user)
	case callbackQuiz:
		return b.handleQuiz(ctx, chatID, user, quiz.MultipleChoice)
	case callbackUnits:
		return b.handleUnits(ctx, chatID, user)
	case callbackStats:
		return b.handleStats(ctx, chatID, user)
	case callbackHelp:
		return b.handleHelp(chatID)
	}

	// Prefixed actions come after the exact matches
	switch {
	case strings.HasPrefix(callback.Data, prefixShow):
		return b.handleShowAnswer(ctx, callback.Message, user, strings.TrimPrefix(callback.Data, prefixShow))
	case strings.HasPrefix(callback.Data, prefixRate):
		itemID, q, err := parseItemCallback(callback.Data, prefixRate)
		if err != nil {
			return err
		}
		return b.handleRate(ctx, callback.Message, user, itemID, srs.Quality(q))
	case strings.HasPrefix(callback.Data, prefixQuiz):
		itemID, option, err := parseItemCallback(callback.Data, prefixQuiz)
		if err != nil {
			return err
		}
		return b.handleQuizAnswer(ctx, callback.Message, user, itemID, option)
	case strings.HasPrefix(callback.Data, prefixLearn):
		return b.handleLearn(ctx, chatID, user, strings.TrimPrefix(callback.Data, prefixLearn))
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, "⚠️ Unknown action"))
}

func (b *Bot) handleStart(chatID int64, user models.User) error {
	name := user.FirstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi %s, welcome to Chirpolly!\n\n", name) +
		"Finish a lesson unit and its words join your review queue. " +
		"I will bring each word back right before you are likely to forget it.\n\n" +
		"Start with /units, then /review every day."
	return b.sendMessage(b.withMenu(chatID, text))
}

func (b *Bot) handleHelp(chatID int64) error {
	text := "📖 Commands\n\n" +
		"/units - Lesson units of your language\n" +
		"/learn <unit> - Complete a unit and add its words\n" +
		"/review - Review the words that are due\n" +
		"/quiz - Multiple choice question on a due word (/quiz reverse for the other way)\n" +
		"/stats - Your progress\n" +
		"/languages - Available languages\n" +
		"/lang <code> - Switch language\n" +
		"/notify <hour|off> - Daily reminder hour (UTC) or turn reminders off\n" +
		"/words <n> - Words per review session\n\n" +
		"Rate every card honestly: Again, Hard, Good or Easy. " +
		"The buttons show when you will see the word next."
	return b.sendMessage(b.withMenu(chatID, text))
}

func (b *Bot) handleLanguages(chatID int64, user models.User) error {
	codes := b.catalog.LanguageCodes()
	if len(codes) == 0 {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "No languages are available yet."))
	}
	var sb strings.Builder
	sb.WriteString("🌍 Languages\n\n")
	for _, code := range codes {
		modules, _ := b.catalog.Modules(code)
		units := 0
		for _, m := range modules {
			units += len(m.Units)
		}
		marker := ""
		if code == user.Language {
			marker = " ← current"
		}
		fmt.Fprintf(&sb, "%s: %d %s, %d %s%s\n", code,
			len(modules), plural(len(modules), "level", "levels"),
			units, plural(units, "unit", "units"), marker)
	}
	sb.WriteString("\nSwitch with /lang <code>")
	return b.sendMessage(tgbotapi.NewMessage(chatID, sb.String()))
}

func (b *Bot) handleLanguage(ctx context.Context, chatID int64, user models.User, code string) error {
	code = strings.ToLower(code)
	if code == "" {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "Please give a language code: /lang <code>"))
	}
	if _, err := b.catalog.Modules(code); err != nil {
		if errors.Is(err, content.ErrLanguageNotFound) {
			text := fmt.Sprintf("Unknown language %q. Available: %s", code, strings.Join(b.catalog.LanguageCodes(), ", "))
			return b.sendMessage(tgbotapi.NewMessage(chatID, text))
		}
		return err
	}
	if err := b.users.SetLanguage(ctx, user.ID, code); err != nil {
		return fmt.Errorf("failed to update language: %w", err)
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Now learning %s", code)))
}

func (b *Bot) handleUnits(ctx context.Context, chatID int64, user models.User) error {
	modules, err := b.catalog.Modules(user.Language)
	if errors.Is(err, content.ErrLanguageNotFound) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "Pick a language first: /languages"))
	}
	if err != nil {
		return err
	}
	completed, err := b.review.CompletedUnits(ctx, user.ID, user.Language)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(completed))
	for _, c := range completed {
		done[c.UnitID] = true
	}

	var (
		sb      strings.Builder
		buttons [][]MenuButton
	)
	fmt.Fprintf(&sb, "📚 Units (%s)\n", user.Language)
	for _, m := range modules {
		fmt.Fprintf(&sb, "\n%s %s\n", m.Level, m.Theme)
		for _, u := range m.Units {
			mark := "▫️"
			if done[u.UnitID] {
				mark = "✅"
			}
			fmt.Fprintf(&sb, "%s %s %s (%s, %d %s)\n", mark, u.Emoji, u.Title, u.UnitID,
				len(u.Words), plural(len(u.Words), "word", "words"))
			data := prefixLearn + u.UnitID
			if !done[u.UnitID] && len(data) <= maxCallbackData {
				buttons = append(buttons, []MenuButton{{Text: "Learn " + u.Title, CallbackData: data}})
			}
		}
	}
	msg := tgbotapi.NewMessage(chatID, sb.String())
	buttons = append(buttons, []MenuButton{{Text: "⬅️ Back to menu", CallbackData: callbackMainMenu}})
	msg.ReplyMarkup = createKeyboard(buttons)
	return b.sendMessage(msg)
}

func (b *Bot) handleLearn(ctx context.Context, chatID int64, user models.User, unitID string) error {
	if unitID == "" {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "Please give a unit: /learn <unit>. See /units."))
	}
	added, err := b.review.CompleteUnit(ctx, user.ID, user.Language, unitID)
	if errors.Is(err, content.ErrUnitNotFound) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "Unit not found. Use /units to see the available units."))
	}
	if err != nil {
		return err
	}
	text := "✅ Unit completed. All of its words were already in your review queue."
	if len(added) > 0 {
		text = fmt.Sprintf("🎉 Unit completed! %d new %s added to your review queue.",
			len(added), plural(len(added), "word", "words"))
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🔁 Review now", CallbackData: callbackReview}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleReview(ctx context.Context, chatID int64, user models.User) error {
	limit := user.WordsPerDay
	if limit <= 0 {
		limit = b.cfg.ReviewLimit
	}
	first, ok, err := b.review.StartSession(ctx, user.ID, limit)
	if err != nil {
		return err
	}
	if !ok {
		return b.sendMessage(b.withMenu(chatID, "🎉 Nothing to review right now. Come back later or learn a new unit."))
	}
	_, progress, err := b.review.Current(user.ID)
	if err != nil {
		return err
	}
	return b.sendCard(chatID, first, progress)
}

func (b *Bot) sendCard(chatID int64, item models.VocabularyItem, p review.Progress) error {
	msg := tgbotapi.NewMessage(chatID, cardText(item, p))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "👀 Show answer", CallbackData: prefixShow + item.ID}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleShowAnswer(ctx context.Context, message *tgbotapi.Message, user models.User, itemID string) error {
	current, progress, err := b.review.Current(user.ID)
	if errors.Is(err, review.ErrNoSession) || (err == nil && current.ID != itemID) {
		return b.sendStale(message.Chat.ID)
	}
	if err != nil {
		return err
	}
	preview, err := b.review.Preview(ctx, user.ID, itemID)
	if err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(message.Chat.ID, message.MessageID,
		answerText(current, progress), createKeyboard(ratingButtons(itemID, preview)))
	edit.ParseMode = tgbotapi.ModeMarkdown
	return b.sendMessage(edit)
}

func (b *Bot) handleRate(ctx context.Context, message *tgbotapi.Message, user models.User, itemID string, q srs.Quality) error {
	res, err := b.review.Answer(ctx, user.ID, itemID, q)
	if errors.Is(err, review.ErrNoSession) || errors.Is(err, review.ErrNotCurrent) {
		return b.sendStale(message.Chat.ID)
	}
	if err != nil {
		return err
	}

	chatID := message.Chat.ID
	rated := fmt.Sprintf("*%s* = %s\nRated %s, next review in %s",
		escape(res.Rated.Word), escape(res.Rated.Meaning), q, srs.FormatInterval(res.Rated.Interval))
	edit := tgbotapi.NewEditMessageText(chatID, message.MessageID, rated)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if err := b.sendMessage(edit); err != nil {
		b.log.Warn("failed to update card", "chat_id", chatID, "error", err)
	}

	if !res.Done {
		return b.sendCard(chatID, res.Next, res.Progress)
	}
	reviewed := len(res.Reviewed)
	text := fmt.Sprintf("🎉 Session complete! You reviewed %d %s.", reviewed, plural(reviewed, "word", "words"))
	if lapses := res.Progress.Lapses; lapses > 0 {
		text += fmt.Sprintf(" %d %s went back for relearning.", lapses, plural(lapses, "card", "cards"))
	}
	return b.sendMessage(b.withMenu(chatID, text))
}

func (b *Bot) sendStale(chatID int64) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, "This card is no longer active. Use /review to start a new session."))
}

func (b *Bot) handleQuiz(ctx context.Context, chatID int64, user models.User, kind quiz.Kind) error {
	due, err := b.review.Due(ctx, user.ID, 1)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return b.sendMessage(b.withMenu(chatID, "🎉 Nothing is due for a quiz right now."))
	}
	pool, err := b.review.Items(ctx, user.ID)
	if err != nil {
		return err
	}
	q, err := b.quiz.Build(due[0], pool, kind)
	if errors.Is(err, quiz.ErrTooFewWords) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "Learn a few more words before taking a quiz."))
	}
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.quizzes[user.ID] = pendingQuiz{question: q, askedAt: b.now()}
	b.mu.Unlock()

	buttons := make([][]MenuButton, 0, len(q.Options))
	for i, option := range q.Options {
		buttons = append(buttons, []MenuButton{{
			Text:         option,
			CallbackData: fmt.Sprintf("%s%s:%d", prefixQuiz, q.ItemID, i),
		}})
	}
	question := "What does *%s* mean?"
	if kind == quiz.ReverseChoice {
		question = "Which word means *%s*?"
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("❓ "+question, escape(q.Prompt)))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = createKeyboard(buttons)
	return b.sendMessage(msg)
}

func (b *Bot) handleQuizAnswer(ctx context.Context, message *tgbotapi.Message, user models.User, itemID string, option int) error {
	b.mu.Lock()
	pending, ok := b.quizzes[user.ID]
	if ok && pending.question.ItemID == itemID {
		delete(b.quizzes, user.ID)
	}
	b.mu.Unlock()

	chatID := message.Chat.ID
	elapsed := b.now().Sub(pending.askedAt)
	if !ok || pending.question.ItemID != itemID || elapsed > b.cfg.QuizTTL {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "This question has expired. Use /quiz for a new one."))
	}

	correct := pending.question.Check(strconv.Itoa(option))
	quality := b.quiz.Config().Grade(correct, elapsed)
	rated, err := b.review.Rate(ctx, user.ID, itemID, quality)
	if err != nil {
		return err
	}

	var text string
	if correct {
		text = "✅ Correct!"
	} else {
		text = fmt.Sprintf("❌ The answer was: %s", pending.question.Answer)
	}
	text += fmt.Sprintf("\nRated %s, next review in %s", quality, srs.FormatInterval(rated.Interval))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "❓ Next question", CallbackData: callbackQuiz}, {Text: "⬅️ Menu", CallbackData: callbackMainMenu}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, user models.User) error {
	s, err := b.review.Stats(ctx, user.ID)
	if err != nil {
		return err
	}
	week, err := b.review.Activity(ctx, user.ID, 7)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("📊 Your statistics\n\n"+
		"Words: %d\n"+
		"Due now: %d\n"+
		"Not reviewed yet: %d\n"+
		"Mastered: %d\n"+
		"Average ease: %.2f\n"+
		"Average interval: %s\n\n"+
		"Last 7 days: %d %s",
		s.Total, s.Due, s.New, s.Mastered, s.AverageEase,
		srs.FormatInterval(int(s.AverageInterval+0.5)),
		week.Reviews, plural(week.Reviews, "review", "reviews"))
	if week.Reviews > 0 {
		text += fmt.Sprintf(", %d%% recalled", week.Recalled*100/week.Reviews)
	}
	return b.sendMessage(b.withMenu(chatID, text))
}

func (b *Bot) handleNotify(ctx context.Context, chatID int64, user models.User, args string) error {
	usage := "Please give an hour (0-23, UTC) or off: /notify <hour|off>"
	if args == "" {
		state := "off"
		if user.NotificationEnabled {
			state = fmt.Sprintf("at %d:00 UTC", user.NotificationHour)
		}
		return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("Reminders are %s.\n%s", state, usage)))
	}
	if strings.EqualFold(args, "off") {
		if err := b.users.SetNotificationHour(ctx, user.ID, user.NotificationHour, false); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return b.sendMessage(tgbotapi.NewMessage(chatID, "🔕 Reminders turned off"))
	}
	hour, err := strconv.Atoi(args)
	if err != nil || hour < 0 || hour > 23 {
		return b.sendMessage(tgbotapi.NewMessage(chatID, usage))
	}
	if err := b.users.SetNotificationHour(ctx, user.ID, hour, true); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("🔔 Reminders set for %d:00 UTC", hour)))
}

func (b *Bot) handleWordsPerDay(ctx context.Context, chatID int64, user models.User, args string) error {
	current := user.WordsPerDay
	if current <= 0 {
		current = b.cfg.ReviewLimit
	}
	usage := fmt.Sprintf("Please give a number between 1 and %d: /words <n>", maxWordsPerDay)
	if args == "" {
		return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("You review up to %d words per session.\n%s", current, usage)))
	}
	n, err := strconv.Atoi(args)
	if err != nil || n < 1 || n > maxWordsPerDay {
		return b.sendMessage(tgbotapi.NewMessage(chatID, usage))
	}
	if err := b.users.SetWordsPerDay(ctx, user.ID, n); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Sessions now hold up to %d words", n)))
}

func cardText(item models.VocabularyItem, p review.Progress) string {
	text := fmt.Sprintf("📝 Card %d/%d\n\n*%s*", p.Current, p.Total, escape(item.Word))
	if item.Transliteration != "" {
		text += fmt.Sprintf("\n_%s_", escape(item.Transliteration))
	}
	return text
}

func answerText(item models.VocabularyItem, p review.Progress) string {
	return cardText(item, p) + "\n\n" + escape(item.Meaning) + "\n\nHow well did you remember it?"
}

// ratingButtons labels each rating with the interval it would give.
func ratingButtons(itemID string, preview map[srs.Quality]models.VocabularyItem) [][]MenuButton {
	button := func(q srs.Quality) MenuButton {
		return MenuButton{
			Text:         fmt.Sprintf("%s · %s", q, srs.FormatInterval(preview[q].Interval)),
			CallbackData: fmt.Sprintf("%s%s:%d", prefixRate, itemID, int(q)),
		}
	}
	return [][]MenuButton{
		{button(srs.QualityAgain), button(srs.QualityHard)},
		{button(srs.QualityGood), button(srs.QualityEasy)},
	}
}

// parseItemCallback splits "<prefix><itemID>:<n>".
func parseItemCallback(data, prefix string) (itemID string, n int, err error) {
	rest := strings.TrimPrefix(data, prefix)
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return "", 0, fmt.Errorf("malformed callback data %q", data)
	}
	n, err = strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed callback data %q: %w", data, err)
	}
	return rest[:i], n, nil
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
