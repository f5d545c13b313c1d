package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/profile"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

// Config настройки CLI эмулятора
type Config struct {
	Session SessionConfig
	Patient PatientConfig
	Output  OutputConfig
	Log     LogConfig
}

type SessionConfig struct {
	DurationHours float64
	Seed          int64
	StepMinutes   int
	// Start нулевое значение означает "сейчас минус DurationHours"
	Start time.Time
}

type PatientConfig struct {
	Name                         string
	PostureTimeLimitMinutes      float64
	RepositionFailureProbability float64
	MealDurationMinutes          float64
	MealClocks                   []string
	MealPolicy                   profile.MealPolicy
}

type OutputConfig struct {
	GridPath   string
	EventsPath string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadArgs разбирает аргументы командной строки (без имени программы)
func LoadArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("emulator", flag.ContinueOnError)

	hours := fs.Int("horas", 24, "Длительность сессии в целых часах")
	seed := fs.Int64("seed", 42, "Seed генератора")
	step := fs.Int("passo", 5, "Шаг сетки в минутах")
	output := fs.String("saida", "dados_simulados/sessao.csv", "Файл сетки (.csv, .jsonl, .xlsx)")
	events := fs.String("eventos", "", "Файл событий (необязательно)")
	start := fs.String("inicio", "", "Начало сессии YYYY-MM-DDTHH:MM (по умолчанию сейчас минус --horas)")

	name := fs.String("nome", profile.DefaultName, "Имя пациента")
	limit := fs.Float64("limite", profile.DefaultPostureTimeLimit.Minutes(), "Лимит времени в одной позе, минуты")
	failProb := fs.Float64("prob-falha", profile.DefaultRepositionFailureProbability, "Вероятность пропуска смены позы")
	meal := fs.Float64("refeicao", profile.DefaultMealDuration.Minutes(), "Длительность приёма пищи, минуты")
	meals := fs.String("refeicoes", "", "Времена приёма пищи HH:MM через запятую")
	policy := fs.String("politica-refeicao", string(profile.MealPolicyPreempt), "Политика приёма пищи: preempt|window")

	logLevel := fs.String("log-level", "info", "Уровень логирования")
	logFormat := fs.String("log-format", "console", "Формат логов: console|json")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := utils.ValidatePositive("horas", float64(*hours)); err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrInvalidDuration)
	}
	if *step <= 0 {
		return nil, fmt.Errorf("passo=%d: %w", *step, models.ErrInvalidStep)
	}
	mealPolicy, err := profile.ParseMealPolicy(*policy)
	if err != nil {
		return nil, err
	}

	var startTime time.Time
	if *start != "" {
		startTime, err = parseStart(*start)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Session: SessionConfig{
			DurationHours: float64(*hours),
			Seed:          *seed,
			StepMinutes:   *step,
			Start:         startTime,
		},
		Patient: PatientConfig{
			Name:                         *name,
			PostureTimeLimitMinutes:      *limit,
			RepositionFailureProbability: *failProb,
			MealDurationMinutes:          *meal,
			MealClocks:                   splitList(*meals),
			MealPolicy:                   mealPolicy,
		},
		Output: OutputConfig{
			GridPath:   *output,
			EventsPath: *events,
		},
		Log: LogConfig{
			Level:  *logLevel,
			Format: *logFormat,
		},
	}
	return cfg, nil
}

// Profile собирает профиль пациента; времена приёма пищи берутся на день start
func (c PatientConfig) Profile(start time.Time) (*profile.PatientProfile, error) {
	p := profile.PatientProfile{
		Name:                         c.Name,
		PostureTimeLimit:             utils.MinutesToDuration(c.PostureTimeLimitMinutes),
		RepositionFailureProbability: c.RepositionFailureProbability,
		MealDuration:                 utils.MinutesToDuration(c.MealDurationMinutes),
		MealPolicy:                   c.MealPolicy,
	}
	if len(c.MealClocks) > 0 {
		times, err := profile.ParseMealClock(start, c.MealClocks)
		if err != nil {
			return nil, err
		}
		p.MealTimes = times
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func parseStart(value string) (time.Time, error) {
	t, err := utils.ParseLocal(value)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --inicio %q: %w", value, models.ErrInvalidSessionWindow)
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
