package bot

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/chirpolly/internal/content"
	"github.com/example/chirpolly/internal/database"
	"github.com/example/chirpolly/internal/quiz"
	"github.com/example/chirpolly/internal/review"
	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

const learnerID = 4242

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

// last returns the text and inline keyboard of the last sent message or edit.
func (f *fakeAPI) last(t *testing.T) (string, [][]tgbotapi.InlineKeyboardButton) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	switch m := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		if kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			return m.Text, kb.InlineKeyboard
		}
		return m.Text, nil
	case tgbotapi.EditMessageTextConfig:
		if m.ReplyMarkup != nil {
			return m.Text, m.ReplyMarkup.InlineKeyboard
		}
		return m.Text, nil
	default:
		t.Fatalf("unexpected chattable %T", m)
	}
	return "", nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	bot   *Bot
	api   *fakeAPI
	users *database.UserRepository
	clock *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	catalog := content.New()
	catalog.AddUnit("es", "A1", "First steps", models.LessonUnit{
		UnitID: "a1-greetings",
		Title:  "Greetings",
		Words: []models.Word{
			{Word: "hola", Meaning: "hello"},
			{Word: "adiós", Meaning: "goodbye"},
			{Word: "gracias", Meaning: "thank you"},
		},
	})

	f := &fixture{
		api:   &fakeAPI{updates: make(chan tgbotapi.Update)},
		users: database.NewUserRepository(db),
		clock: &clock{t: t0},
	}
	svc, err := review.New(review.Deps{
		Scheduler:  srs.NewDefaultSM2(),
		Vocabulary: database.NewVocabularyRepository(db),
		History:    database.NewReviewLogRepository(db),
		Units:      database.NewUnitRepository(db),
		Catalog:    catalog,
		Clock:      f.clock.now,
	})
	if err != nil {
		t.Fatalf("review.New: %v", err)
	}
	f.bot, err = newBot(f.api, DefaultConfig(), Deps{
		Review:  svc,
		Users:   f.users,
		Catalog: catalog,
		Quiz:    quiz.NewBuilder(quiz.DefaultConfig(), rand.New(rand.NewSource(1))),
		Clock:   f.clock.now,
	})
	if err != nil {
		t.Fatalf("newBot: %v", err)
	}
	return f
}

func (f *fixture) command(t *testing.T, text string) {
	t.Helper()
	cmd := strings.SplitN(text, " ", 2)[0]
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: learnerID, FirstName: "Ana", UserName: "ana"},
		Chat:      &tgbotapi.Chat{ID: learnerID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
	if err := f.bot.HandleCommand(context.Background(), msg); err != nil {
		t.Fatalf("HandleCommand(%q): %v", text, err)
	}
}

func (f *fixture) press(t *testing.T, data string) {
	t.Helper()
	cb := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: learnerID, FirstName: "Ana"},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: learnerID}},
		Data:    data,
	}
	if err := f.bot.HandleCallback(context.Background(), cb); err != nil {
		t.Fatalf("HandleCallback(%q): %v", data, err)
	}
}

func TestParseItemCallback(t *testing.T) {
	tests := []struct {
		data    string
		prefix  string
		wantID  string
		wantN   int
		wantErr bool
	}{
		{"rate:abc-123:4", prefixRate, "abc-123", 4, false},
		{"quiz:abc:0", prefixQuiz, "abc", 0, false},
		{"rate:abc", prefixRate, "", 0, true},
		{"rate::4", prefixRate, "", 0, true},
		{"rate:abc:x", prefixRate, "", 0, true},
	}
	for _, tt := range tests {
		id, n, err := parseItemCallback(tt.data, tt.prefix)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseItemCallback(%q) error = %v, wantErr %v", tt.data, err, tt.wantErr)
			continue
		}
		if id != tt.wantID || n != tt.wantN {
			t.Errorf("parseItemCallback(%q) = %q, %d; want %q, %d", tt.data, id, n, tt.wantID, tt.wantN)
		}
	}
}

func TestRatingButtons(t *testing.T) {
	sm := srs.NewDefaultSM2()
	item := sm.Initialize("es", models.Word{Word: "hola", Meaning: "hello"}, t0)
	rows := ratingButtons(item.ID, sm.Preview(item, t0))

	want := []string{"Again · 1d", "Hard · 2d", "Good · 1d", "Easy · 4d"}
	var got []string
	for _, row := range rows {
		for _, b := range row {
			got = append(got, b.Text)
			if len(b.CallbackData) > maxCallbackData {
				t.Errorf("callback data %q is %d bytes", b.CallbackData, len(b.CallbackData))
			}
		}
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("labels = %v, want %v", got, want)
	}
	if rows[1][0].CallbackData != "rate:"+item.ID+":4" {
		t.Errorf("Good callback = %q", rows[1][0].CallbackData)
	}
}

func TestStartCreatesLearner(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/start")

	user, err := f.users.GetByID(context.Background(), learnerID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.Language != "es" || !user.NotificationEnabled || user.NotificationHour != 9 {
		t.Errorf("new learner = %+v", user)
	}
	text, kb := f.api.last(t)
	if !strings.Contains(text, "Ana") {
		t.Errorf("welcome text %q does not greet the learner", text)
	}
	if len(kb) == 0 {
		t.Error("welcome message has no menu")
	}
}

func TestReviewSession(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/learn a1-greetings")
	if text, _ := f.api.last(t); !strings.Contains(text, "3 new words") {
		t.Fatalf("learn reply = %q", text)
	}

	f.command(t, "/review")
	for i := 1; i <= 3; i++ {
		text, kb := f.api.last(t)
		if !strings.Contains(text, "Card ") {
			t.Fatalf("card %d: got %q", i, text)
		}
		show := *kb[0][0].CallbackData
		if !strings.HasPrefix(show, prefixShow) {
			t.Fatalf("card %d: button data %q", i, show)
		}
		itemID := strings.TrimPrefix(show, prefixShow)

		f.press(t, show)
		_, kb = f.api.last(t)
		if len(kb) != 2 || len(kb[0]) != 2 {
			t.Fatalf("card %d: rating keyboard = %v", i, kb)
		}
		f.press(t, "rate:"+itemID+":4")
	}

	text, _ := f.api.last(t)
	if !strings.Contains(text, "You reviewed 3 words") {
		t.Errorf("final message = %q", text)
	}
	stats, err := f.bot.review.Stats(context.Background(), learnerID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Due != 0 {
		t.Errorf("due after session = %d, want 0", stats.Due)
	}
}

func TestReviewAgainComesBack(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/learn a1-greetings")
	f.command(t, "/review")

	_, kb := f.api.last(t)
	first := strings.TrimPrefix(*kb[0][0].CallbackData, prefixShow)
	f.press(t, "rate:"+first+":0")

	seen := 0
	for {
		text, kb := f.api.last(t)
		if strings.Contains(text, "Session complete") {
			if !strings.Contains(text, "1 card went back") {
				t.Errorf("final message = %q", text)
			}
			break
		}
		id := strings.TrimPrefix(*kb[0][0].CallbackData, prefixShow)
		if id == first {
			seen++
		}
		f.press(t, "rate:"+id+":4")
	}
	if seen != 1 {
		t.Errorf("lapsed card shown again %d times, want 1", seen)
	}
}

func TestRateWithoutSession(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/learn a1-greetings")
	f.press(t, "rate:"+srs.ItemID("es", "hola")+":4")

	if text, _ := f.api.last(t); !strings.Contains(text, "no longer active") {
		t.Errorf("reply = %q", text)
	}
	item, err := f.bot.review.Items(context.Background(), learnerID)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range item {
		if it.Reviewed() {
			t.Errorf("%s was rated without a session", it.Word)
		}
	}
}

func TestQuizAnswer(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/learn a1-greetings")
	f.command(t, "/quiz")

	f.bot.mu.Lock()
	pending, ok := f.bot.quizzes[learnerID]
	f.bot.mu.Unlock()
	if !ok {
		t.Fatal("no pending quiz")
	}
	_, kb := f.api.last(t)
	if len(kb) != len(pending.question.Options) {
		t.Fatalf("%d buttons for %d options", len(kb), len(pending.question.Options))
	}

	f.clock.advance(8 * time.Second)
	f.press(t, *kb[pending.question.CorrectIndex][0].CallbackData)
	text, _ := f.api.last(t)
	if !strings.Contains(text, "Correct") || !strings.Contains(text, "Rated Good") {
		t.Errorf("reply = %q", text)
	}

	// A second press of the same button finds no pending question
	f.press(t, *kb[pending.question.CorrectIndex][0].CallbackData)
	if text, _ := f.api.last(t); !strings.Contains(text, "expired") {
		t.Errorf("repeat reply = %q", text)
	}
}

func TestQuizWrongAnswer(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/learn a1-greetings")
	f.command(t, "/quiz")

	f.bot.mu.Lock()
	pending := f.bot.quizzes[learnerID]
	f.bot.mu.Unlock()
	wrong := (pending.question.CorrectIndex + 1) % len(pending.question.Options)
	_, kb := f.api.last(t)
	f.press(t, *kb[wrong][0].CallbackData)

	text, _ := f.api.last(t)
	if !strings.Contains(text, "The answer was: "+pending.question.Answer) || !strings.Contains(text, "Rated Again") {
		t.Errorf("reply = %q", text)
	}
}

func TestQuizExpires(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/learn a1-greetings")
	f.command(t, "/quiz")
	_, kb := f.api.last(t)

	f.clock.advance(DefaultConfig().QuizTTL + time.Second)
	f.press(t, *kb[0][0].CallbackData)
	if text, _ := f.api.last(t); !strings.Contains(text, "expired") {
		t.Errorf("reply = %q", text)
	}
}

func TestNotify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.command(t, "/notify 7")
	user, err := f.users.GetByID(ctx, learnerID)
	if err != nil {
		t.Fatal(err)
	}
	if user.NotificationHour != 7 || !user.NotificationEnabled {
		t.Errorf("after /notify 7: %+v", user)
	}

	f.command(t, "/notify off")
	user, _ = f.users.GetByID(ctx, learnerID)
	if user.NotificationEnabled || user.NotificationHour != 7 {
		t.Errorf("after /notify off: %+v", user)
	}

	f.command(t, "/notify 25")
	if text, _ := f.api.last(t); !strings.Contains(text, "0-23") {
		t.Errorf("reply to bad hour = %q", text)
	}
}

func TestWordsPerDay(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/learn a1-greetings")
	f.command(t, "/words 2")
	if user, _ := f.users.GetByID(context.Background(), learnerID); user.WordsPerDay != 2 {
		t.Fatalf("WordsPerDay = %d, want 2", user.WordsPerDay)
	}

	f.command(t, "/review")
	if text, _ := f.api.last(t); !strings.Contains(text, "Card 1/2") {
		t.Errorf("first card = %q", text)
	}

	f.command(t, "/words 0")
	if text, _ := f.api.last(t); !strings.Contains(text, "between 1 and") {
		t.Errorf("reply to 0 = %q", text)
	}
}

func TestLanguageCommands(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/lang xx")
	if text, _ := f.api.last(t); !strings.Contains(text, "Available: es") {
		t.Errorf("reply = %q", text)
	}
	f.command(t, "/lang ES")
	user, err := f.users.GetByID(context.Background(), learnerID)
	if err != nil {
		t.Fatal(err)
	}
	if user.Language != "es" {
		t.Errorf("language = %q", user.Language)
	}
}

func TestUnitsAndLearnUnknown(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/units")
	text, kb := f.api.last(t)
	if !strings.Contains(text, "Greetings") {
		t.Errorf("units text = %q", text)
	}
	if *kb[0][0].CallbackData != prefixLearn+"a1-greetings" {
		t.Errorf("first button = %q", *kb[0][0].CallbackData)
	}

	f.press(t, prefixLearn+"a1-greetings")
	f.command(t, "/units")
	text, _ = f.api.last(t)
	if !strings.Contains(text, "✅") {
		t.Errorf("completed unit not marked: %q", text)
	}

	f.command(t, "/learn nope")
	if text, _ := f.api.last(t); !strings.Contains(text, "Unit not found") {
		t.Errorf("reply = %q", text)
	}
}

func TestSendReminder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.bot.SendReminder(ctx, learnerID, 3)
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("unknown learner: err = %v, want ErrNotFound", err)
	}

	f.command(t, "/start")
	if err := f.bot.SendReminder(ctx, learnerID, 3); err != nil {
		t.Fatalf("SendReminder: %v", err)
	}
	f.api.mu.Lock()
	msg := f.api.sent[len(f.api.sent)-1].(tgbotapi.MessageConfig)
	f.api.mu.Unlock()
	if msg.ChatID != learnerID || !strings.Contains(msg.Text, "3 words") {
		t.Errorf("reminder = %d %q", msg.ChatID, msg.Text)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.command(t, "/learn a1-greetings")
	f.command(t, "/review")
	_, kb := f.api.last(t)
	f.press(t, "rate:"+strings.TrimPrefix(*kb[0][0].CallbackData, prefixShow)+":0")

	f.command(t, "/stats")
	text, _ := f.api.last(t)
	for _, want := range []string{"Words: 3", "Due now: 2", "Not reviewed yet: 2", "Last 7 days: 1 review, 0% recalled"} {
		if !strings.Contains(text, want) {
			t.Errorf("stats text %q lacks %q", text, want)
		}
	}
}

func TestCallbackIsAnswered(t *testing.T) {
	f := newFixture(t)
	f.press(t, "bogus")
	if text, _ := f.api.last(t); !strings.Contains(text, "Unknown action") {
		t.Errorf("reply = %q", text)
	}
	if len(f.api.requests) != 1 {
		t.Errorf("%d callback answers, want 1", len(f.api.requests))
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.bot.Start(ctx) }()

	f.api.updates <- tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: learnerID},
		Chat: &tgbotapi.Chat{ID: learnerID},
		Text: "hello",
	}}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	if !f.api.stopped {
		t.Error("updates were not stopped")
	}
	if len(f.api.sent) != 1 {
		t.Errorf("%d messages sent, want 1", len(f.api.sent))
	}
}
