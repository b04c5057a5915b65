package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/example/chirpolly/internal/quiz"
	srs "github.com/example/chirpolly/internal/spaced_repetition"
)

// TuningFile is the optional TOML file that overrides scheduler and quiz
// constants. Unset keys keep their defaults.
type TuningFile struct {
	Scheduler SchedulerTuning `toml:"scheduler"`
	Quiz      QuizTuning      `toml:"quiz"`
}

type SchedulerTuning struct {
	InitialEase         *float64 `toml:"initial_ease"`
	MinEase             *float64 `toml:"min_ease"`
	FirstInterval       *int     `toml:"first_interval"`
	SecondInterval      *int     `toml:"second_interval"`
	HardInterval        *int     `toml:"hard_interval"`
	RelearnInterval     *int     `toml:"relearn_interval"`
	EasyFirstInterval   *int     `toml:"easy_first_interval"`
	EasyBonus           *float64 `toml:"easy_bonus"`
	MaxInterval         *int     `toml:"max_interval"`
	MasteredRepetitions *int     `toml:"mastered_repetitions"`
	MasteredInterval    *int     `toml:"mastered_interval"`
}

type QuizTuning struct {
	Options     *int     `toml:"options"`
	FastSeconds *float64 `toml:"fast_seconds"`
	SlowSeconds *float64 `toml:"slow_seconds"`
}

// LoadTuning reads a tuning file. A missing file is not an error.
func LoadTuning(path string) (TuningFile, error) {
	if path == "" {
		return TuningFile{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return TuningFile{}, nil
		}
		return TuningFile{}, fmt.Errorf("failed to stat tuning file: %w", err)
	}
	var f TuningFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return TuningFile{}, fmt.Errorf("failed to decode tuning file: %w", err)
	}
	return f, nil
}

// Apply overlays the set scheduler keys onto cfg.
func (t SchedulerTuning) Apply(cfg srs.Config) srs.Config {
	setFloat(&cfg.InitialEase, t.InitialEase)
	setFloat(&cfg.MinEase, t.MinEase)
	setInt(&cfg.FirstInterval, t.FirstInterval)
	setInt(&cfg.SecondInterval, t.SecondInterval)
	setInt(&cfg.HardInterval, t.HardInterval)
	setInt(&cfg.RelearnInterval, t.RelearnInterval)
	setInt(&cfg.EasyFirstInterval, t.EasyFirstInterval)
	setFloat(&cfg.EasyBonus, t.EasyBonus)
	setInt(&cfg.MaxInterval, t.MaxInterval)
	setInt(&cfg.MasteredRepetitions, t.MasteredRepetitions)
	setInt(&cfg.MasteredInterval, t.MasteredInterval)
	return cfg
}

// Apply overlays the set quiz keys onto cfg.
func (t QuizTuning) Apply(cfg quiz.Config) quiz.Config {
	setInt(&cfg.Options, t.Options)
	if t.FastSeconds != nil {
		cfg.FastAnswer = seconds(*t.FastSeconds)
	}
	if t.SlowSeconds != nil {
		cfg.SlowAnswer = seconds(*t.SlowSeconds)
	}
	return cfg
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
