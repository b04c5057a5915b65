// Package quiz builds recall questions for vocabulary items and turns
// answers into review ratings.
package quiz

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	srs "github.com/example/chirpolly/internal/spaced_repetition"
	"github.com/example/chirpolly/pkg/models"
)

var (
	ErrInvalidConfig = errors.New("quiz: invalid config")
	ErrTooFewWords   = errors.New("quiz: not enough words for distractors")
)

// Kind is the type of a question.
type Kind string

const (
	// Pick the meaning of the shown word
	MultipleChoice Kind = "multiple_choice"
	// Pick the word for the shown meaning
	ReverseChoice Kind = "reverse_choice"
	// Type the word for the shown meaning
	TextInput Kind = "text_input"
)

// Question is a single quiz question about one vocabulary item.
type Question struct {
	ItemID       string
	Kind         Kind
	Prompt       string
	Options      []string // choice questions only
	CorrectIndex int      // index of the right option
	Answer       string
}

// Config controls question size and answer grading.
type Config struct {
	// Options per choice question, including the right one
	Options int
	// Correct answers faster than this are rated Easy
	FastAnswer time.Duration
	// Correct answers slower than this are rated Hard
	SlowAnswer time.Duration
}

func DefaultConfig() Config {
	return Config{
		Options:    4,
		FastAnswer: 5 * time.Second,
		SlowAnswer: 15 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Options < 2 {
		return fmt.Errorf("%w: need at least 2 options, got %d", ErrInvalidConfig, c.Options)
	}
	if c.FastAnswer <= 0 || c.SlowAnswer < c.FastAnswer {
		return fmt.Errorf("%w: answer thresholds %s/%s", ErrInvalidConfig, c.FastAnswer, c.SlowAnswer)
	}
	return nil
}

// Grade maps an answer to the rating the scheduler should record:
// wrong answers are Again, slow ones Hard, fast ones Easy and the rest Good.
func (c Config) Grade(correct bool, elapsed time.Duration) srs.Quality {
	switch {
	case !correct:
		return srs.QualityAgain
	case elapsed > c.SlowAnswer:
		return srs.QualityHard
	case elapsed < c.FastAnswer:
		return srs.QualityEasy
	default:
		return srs.QualityGood
	}
}

// Builder creates questions. It is safe for concurrent use.
type Builder struct {
	cfg Config

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBuilder creates a builder drawing distractors and option order from rnd.
func NewBuilder(cfg Config, rnd *rand.Rand) *Builder {
	return &Builder{cfg: cfg, rnd: rnd}
}

func (b *Builder) Config() Config {
	return b.cfg
}

// Build creates a question about item. Distractors come from pool, which is
// usually the learner's collection; items in other languages are ignored.
func (b *Builder) Build(item models.VocabularyItem, pool []models.VocabularyItem, kind Kind) (Question, error) {
	q := Question{ItemID: item.ID, Kind: kind}
	switch kind {
	case TextInput:
		q.Prompt = item.Meaning
		q.Answer = item.Word
		return q, nil
	case MultipleChoice:
		q.Prompt = item.Word
		q.Answer = item.Meaning
	case ReverseChoice:
		q.Prompt = item.Meaning
		q.Answer = item.Word
	default:
		return Question{}, fmt.Errorf("quiz: unknown question kind %q", kind)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	distractors := b.distractors(item, pool, kind, b.cfg.Options-1)
	if len(distractors) == 0 {
		return Question{}, fmt.Errorf("%w: %s", ErrTooFewWords, item.Word)
	}
	options := append(distractors, q.Answer)
	b.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	for i, o := range options {
		if o == q.Answer {
			q.CorrectIndex = i
			break
		}
	}
	q.Options = options
	return q, nil
}

func (b *Builder) distractors(item models.VocabularyItem, pool []models.VocabularyItem, kind Kind, count int) []string {
	field := func(v models.VocabularyItem) string {
		if kind == ReverseChoice {
			return v.Word
		}
		return v.Meaning
	}

	candidates := make([]models.VocabularyItem, 0, len(pool))
	for _, v := range pool {
		if v.ID != item.ID && strings.EqualFold(v.Language, item.Language) && field(v) != "" {
			candidates = append(candidates, v)
		}
	}
	b.rnd.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	seen := map[string]bool{srs.Canonical(field(item)): true}
	out := make([]string, 0, count)
	for _, v := range candidates {
		if len(out) == count {
			break
		}
		key := srs.Canonical(field(v))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, field(v))
	}
	return out
}

// Check reports whether answer is right. Choice questions accept the option
// index or its text; text questions compare canonical forms.
func (q Question) Check(answer string) bool {
	answer = strings.TrimSpace(answer)
	if q.Kind != TextInput {
		if i, err := strconv.Atoi(answer); err == nil {
			return i == q.CorrectIndex
		}
	}
	return srs.Canonical(answer) == srs.Canonical(q.Answer)
}
