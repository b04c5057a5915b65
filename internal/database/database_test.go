package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Connect(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newWord(sm *srs.SM2, word, meaning string) models.VocabularyItem {
	return sm.Initialize("es", models.Word{Word: word, Meaning: meaning}, t0)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestConnectRejectsUnknownType(t *testing.T) {
	if _, err := Connect(context.Background(), "oracle", "x"); err == nil {
		t.Fatal("expected error for unknown database type")
	}
}

func TestVocabularyRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewVocabularyRepository(newTestDB(t))
	sm := srs.NewDefaultSM2()

	item := newWord(sm, "hola", "hello")
	if err := repo.Upsert(ctx, 1, item); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := repo.Get(ctx, 1, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastReviewed != nil || got.LastQuality != models.NeverRated || !got.DueDate.Equal(t0) {
		t.Errorf("stored new item = %+v", got)
	}

	rated, err := sm.Rate(item, srs.QualityGood, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if err := repo.Upsert(ctx, 1, rated); err != nil {
		t.Fatalf("Upsert rated: %v", err)
	}
	got, err = repo.Get(ctx, 1, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Interval != 1 || got.Repetitions != 1 || got.LastQuality != 4 {
		t.Errorf("stored rated item = %+v", got)
	}
	if got.LastReviewed == nil || !got.LastReviewed.Equal(t0.Add(time.Hour)) {
		t.Errorf("LastReviewed = %v", got.LastReviewed)
	}
	if !got.DueDate.Equal(rated.DueDate) || got.DueDate.Location() != time.UTC {
		t.Errorf("DueDate = %v, want %v in UTC", got.DueDate, rated.DueDate)
	}

	if n, _ := repo.Count(ctx, 1); n != 1 {
		t.Errorf("Count = %d, want 1 after re-upsert", n)
	}
	if _, err := repo.Get(ctx, 2, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get for other learner error = %v, want ErrNotFound", err)
	}
}

func TestUpsertRejectsInvalidItem(t *testing.T) {
	repo := NewVocabularyRepository(newTestDB(t))
	err := repo.Upsert(context.Background(), 1, models.VocabularyItem{ID: "x", Word: "x"})
	if !errors.Is(err, models.ErrInvalidItem) {
		t.Errorf("error = %v, want ErrInvalidItem", err)
	}
}

func TestInsertMissingKeepsExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewVocabularyRepository(newTestDB(t))
	sm := srs.NewDefaultSM2()

	hola := newWord(sm, "hola", "hello")
	rated, _ := sm.Rate(hola, srs.QualityEasy, t0)
	if err := repo.Upsert(ctx, 1, rated); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	batch := []models.VocabularyItem{hola, newWord(sm, "adiós", "goodbye"), newWord(sm, "gracias", "thanks")}
	added, err := repo.InsertMissing(ctx, 1, batch)
	if err != nil {
		t.Fatalf("InsertMissing: %v", err)
	}
	if len(added) != 2 || added[0].Word != "adiós" || added[1].Word != "gracias" {
		t.Fatalf("added = %+v", added)
	}

	items, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("List returned %d items, want 3", len(items))
	}
	if items[0].Word != "hola" || items[0].Repetitions != 1 || items[0].Interval != 4 {
		t.Errorf("existing item overwritten: %+v", items[0])
	}
	if items[1].Word != "adiós" || items[2].Word != "gracias" {
		t.Errorf("order = %s, %s", items[1].Word, items[2].Word)
	}
}

func TestReplaceAll(t *testing.T) {
	ctx := context.Background()
	repo := NewVocabularyRepository(newTestDB(t))
	sm := srs.NewDefaultSM2()

	if _, err := repo.InsertMissing(ctx, 1, []models.VocabularyItem{newWord(sm, "uno", "one")}); err != nil {
		t.Fatalf("InsertMissing: %v", err)
	}
	if _, err := repo.InsertMissing(ctx, 2, []models.VocabularyItem{newWord(sm, "uno", "one")}); err != nil {
		t.Fatalf("InsertMissing: %v", err)
	}

	replacement := []models.VocabularyItem{newWord(sm, "tres", "three"), newWord(sm, "dos", "two")}
	if err := repo.ReplaceAll(ctx, 1, replacement); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	items, _ := repo.List(ctx, 1)
	if len(items) != 2 || items[0].Word != "tres" || items[1].Word != "dos" {
		t.Errorf("learner 1 = %+v", items)
	}
	if n, _ := repo.Count(ctx, 2); n != 1 {
		t.Errorf("learner 2 count = %d, want 1", n)
	}

	bad := []models.VocabularyItem{newWord(sm, "cuatro", "four"), {ID: "broken"}}
	if err := repo.ReplaceAll(ctx, 1, bad); !errors.Is(err, models.ErrInvalidItem) {
		t.Fatalf("ReplaceAll error = %v, want ErrInvalidItem", err)
	}
	if n, _ := repo.Count(ctx, 1); n != 2 {
		t.Errorf("failed replace changed the collection: count %d", n)
	}
}

func TestReviewLogs(t *testing.T) {
	ctx := context.Background()
	repo := NewReviewLogRepository(newTestDB(t))

	entries := []models.ReviewLog{
		{LearnerID: 1, ItemID: "a", Quality: 4, ReviewedAt: t0.Add(48 * time.Hour), Interval: 6, EaseFactor: 2.5},
		{LearnerID: 1, ItemID: "a", Quality: 0, ReviewedAt: t0, Interval: 1, EaseFactor: 1.7},
		{LearnerID: 1, ItemID: "b", Quality: 5, ReviewedAt: t0.Add(time.Hour), Interval: 4, EaseFactor: 2.6},
		{LearnerID: 2, ItemID: "a", Quality: 3, ReviewedAt: t0, Interval: 2, EaseFactor: 2.36},
	}
	for i := range entries {
		if err := repo.Append(ctx, &entries[i]); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if entries[i].ID == 0 {
			t.Fatalf("Append did not set ID")
		}
	}

	logs, err := repo.ListForItem(ctx, 1, "a")
	if err != nil {
		t.Fatalf("ListForItem: %v", err)
	}
	if len(logs) != 2 || logs[0].Quality != 0 || logs[1].Quality != 4 {
		t.Errorf("ListForItem = %+v", logs)
	}
	if !logs[0].ReviewedAt.Equal(t0) || logs[1].Interval != 6 {
		t.Errorf("fields not round-tripped: %+v", logs)
	}

	all, err := repo.ListForLearner(ctx, 1)
	if err != nil {
		t.Fatalf("ListForLearner: %v", err)
	}
	if len(all) != 3 || all[1].ItemID != "b" {
		t.Errorf("ListForLearner = %+v", all)
	}

	activity, err := repo.Activity(ctx, 1, t0, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	want := models.ReviewActivity{Reviews: 2, Recalled: 1, Lapses: 1, Words: 2}
	if activity != want {
		t.Errorf("Activity = %+v, want %+v", activity, want)
	}
	empty, err := repo.Activity(ctx, 3, t0, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	if empty != (models.ReviewActivity{}) {
		t.Errorf("Activity for unknown learner = %+v", empty)
	}

	n, err := repo.DeleteForLearner(ctx, 1)
	if err != nil || n != 3 {
		t.Fatalf("DeleteForLearner = %d, %v; want 3", n, err)
	}
	if left, _ := repo.ListForLearner(ctx, 1); len(left) != 0 {
		t.Errorf("logs left after delete: %+v", left)
	}
	if other, _ := repo.ListForLearner(ctx, 2); len(other) != 1 {
		t.Errorf("other learner's logs = %+v", other)
	}
}

func TestUnits(t *testing.T) {
	ctx := context.Background()
	repo := NewUnitRepository(newTestDB(t))

	unit := models.CompletedUnit{LearnerID: 1, Language: "es", UnitID: "a1-greetings", CompletedAt: t0}
	first, err := repo.MarkComplete(ctx, unit)
	if err != nil || !first {
		t.Fatalf("MarkComplete = %v, %v; want true", first, err)
	}
	unit.CompletedAt = t0.Add(time.Hour)
	again, err := repo.MarkComplete(ctx, unit)
	if err != nil || again {
		t.Fatalf("second MarkComplete = %v, %v; want false", again, err)
	}

	done, err := repo.Completed(ctx, 1, "es")
	if err != nil {
		t.Fatalf("Completed: %v", err)
	}
	if len(done) != 1 || !done[0].CompletedAt.Equal(t0) {
		t.Errorf("Completed = %+v", done)
	}
	if other, _ := repo.Completed(ctx, 1, "fr"); len(other) != 0 {
		t.Errorf("Completed(fr) = %+v", other)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))
	repo.now = func() time.Time { return t0 }

	if _, err := repo.GetByID(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID error = %v, want ErrNotFound", err)
	}

	user := models.User{ID: 7, Username: "ana", FirstName: "Ana", Language: "es", NotificationEnabled: true, NotificationHour: 9, WordsPerDay: 10}
	if err := repo.Upsert(ctx, user); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.SetNotificationHour(ctx, 7, 18, true); err != nil {
		t.Fatalf("SetNotificationHour: %v", err)
	}

	// a profile refresh keeps settings
	user.Username = "ana_m"
	user.NotificationHour = 9
	if err := repo.Upsert(ctx, user); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := repo.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Username != "ana_m" || got.NotificationHour != 18 || !got.NotificationEnabled {
		t.Errorf("user = %+v", got)
	}

	if err := repo.SetLanguage(ctx, 7, "fr"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	if err := repo.SetLanguage(ctx, 8, "fr"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetLanguage unknown user error = %v", err)
	}

	if err := repo.Upsert(ctx, models.User{ID: 8, NotificationEnabled: false, NotificationHour: 18, WordsPerDay: 5}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	users, err := repo.ListForNotification(ctx, 18)
	if err != nil {
		t.Fatalf("ListForNotification: %v", err)
	}
	if len(users) != 1 || users[0].ID != 7 || users[0].Language != "fr" {
		t.Errorf("ListForNotification = %+v", users)
	}
}
