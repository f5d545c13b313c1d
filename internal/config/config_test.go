package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/profile"
)

func TestLoadArgs_Defaults(t *testing.T) {
	cfg, err := LoadArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, 24.0, cfg.Session.DurationHours)
	assert.Equal(t, int64(42), cfg.Session.Seed)
	assert.Equal(t, 5, cfg.Session.StepMinutes)
	assert.True(t, cfg.Session.Start.IsZero())
	assert.Equal(t, "dados_simulados/sessao.csv", cfg.Output.GridPath)
	assert.Empty(t, cfg.Output.EventsPath)
	assert.Equal(t, profile.MealPolicyPreempt, cfg.Patient.MealPolicy)

	p, err := cfg.Patient.Profile(time.Now())
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultProfile(), *p)
}

func TestLoadArgs_Overrides(t *testing.T) {
	cfg, err := LoadArgs([]string{
		"--horas", "3",
		"--seed", "1",
		"--passo", "15",
		"--saida", "out/grid.xlsx",
		"--eventos", "out/events.csv",
		"--inicio", "2024-05-01T08:30",
		"--nome", "Maria",
		"--limite", "90",
		"--prob-falha", "0.25",
		"--refeicao", "20",
		"--refeicoes", "09:00, 13:30",
		"--politica-refeicao", "window",
		"--log-level", "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, 3.0, cfg.Session.DurationHours)
	assert.Equal(t, int64(1), cfg.Session.Seed)
	assert.Equal(t, 15, cfg.Session.StepMinutes)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 30, 0, 0, time.Local), cfg.Session.Start)
	assert.Equal(t, "out/grid.xlsx", cfg.Output.GridPath)
	assert.Equal(t, "out/events.csv", cfg.Output.EventsPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"09:00", "13:30"}, cfg.Patient.MealClocks)

	p, err := cfg.Patient.Profile(cfg.Session.Start)
	require.NoError(t, err)
	assert.Equal(t, "Maria", p.Name)
	assert.Equal(t, 90*time.Minute, p.PostureTimeLimit)
	assert.Equal(t, 0.25, p.RepositionFailureProbability)
	assert.Equal(t, 20*time.Minute, p.MealDuration)
	assert.Equal(t, profile.MealPolicyWindow, p.MealPolicy)
	assert.Equal(t, []time.Time{
		time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local),
		time.Date(2024, 5, 1, 13, 30, 0, 0, time.Local),
	}, p.MealTimes)
}

func TestLoadArgs_Invalid(t *testing.T) {
	_, err := LoadArgs([]string{"--horas", "0"})
	assert.True(t, errors.Is(err, models.ErrInvalidDuration))

	// часы только целые
	_, err = LoadArgs([]string{"--horas", "1.5"})
	assert.Error(t, err)

	_, err = LoadArgs([]string{"--passo", "-5"})
	assert.True(t, errors.Is(err, models.ErrInvalidStep))

	_, err = LoadArgs([]string{"--politica-refeicao", "sometimes"})
	assert.True(t, errors.Is(err, models.ErrInvalidProfile))

	_, err = LoadArgs([]string{"--inicio", "yesterday"})
	assert.Error(t, err)

	_, err = LoadArgs([]string{"--unknown"})
	assert.Error(t, err)

	cfg, err := LoadArgs([]string{"--prob-falha", "1.5"})
	require.NoError(t, err)
	_, err = cfg.Patient.Profile(time.Now())
	assert.True(t, errors.Is(err, models.ErrInvalidProfile))

	cfg, err = LoadArgs([]string{"--prob-falha", "NaN"})
	require.NoError(t, err)
	_, err = cfg.Patient.Profile(time.Now())
	assert.True(t, errors.Is(err, models.ErrInvalidProfile))
}

func TestLoadServer(t *testing.T) {
	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 48, cfg.BatchMaxSamples)
	assert.Equal(t, 200*time.Millisecond, cfg.ReplayInterval)

	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL", "30m")
	cfg, err = LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)

	t.Setenv("BATCH_MAX_SAMPLES", "0")
	_, err = LoadServer()
	assert.Error(t, err)

	t.Setenv("BATCH_MAX_SAMPLES", "abc")
	_, err = LoadServer()
	assert.Error(t, err)
}
