package generators

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krimson/posture-emulator/internal/models"
)

func TestResampleToGrid_Counts(t *testing.T) {
	tests := []struct {
		hours int
		seed  int64
		step  int
		rows  int
	}{
		{hours: 1, seed: 123, step: 10, rows: 7},
		{hours: 2, seed: 111, step: 10, rows: 13},
		{hours: 3, seed: 1, step: 15, rows: 13},
		{hours: 24, seed: 42, step: 5, rows: 289},
		{hours: 1, seed: 9, step: 7, rows: 9},
	}

	for _, tt := range tests {
		end := sessionStart.Add(time.Duration(tt.hours) * time.Hour)
		events, err := GenerateEvents(sessionStart, end, defaultProfile(), tt.seed)
		require.NoError(t, err)

		grid, err := ResampleToGrid(events, tt.step, sessionStart, end)
		require.NoError(t, err)
		require.Len(t, grid, tt.rows)
		assert.Equal(t, tt.rows, GridSize(sessionStart, end, tt.step))

		assert.True(t, grid[0].Timestamp.Equal(sessionStart))
		for i := 1; i < len(grid); i++ {
			assert.Equal(t, time.Duration(tt.step)*time.Minute, grid[i].Timestamp.Sub(grid[i-1].Timestamp))
		}
		for _, s := range grid {
			assert.True(t, s.Posture.IsValid())
		}
	}
}

func TestResampleToGrid_MatchesCoveringEvent(t *testing.T) {
	end := sessionStart.Add(24 * time.Hour)
	events, err := GenerateEvents(sessionStart, end, defaultProfile(), 31)
	require.NoError(t, err)

	grid, err := ResampleToGrid(events, 5, sessionStart, end)
	require.NoError(t, err)

	for _, s := range grid {
		var want models.Posture
		for _, ev := range events {
			if ev.Covers(s.Timestamp) {
				want = ev.Posture
			}
		}
		if want == "" {
			// точка на конце сессии берёт позу последнего события
			want = events[len(events)-1].Posture
		}
		assert.Equal(t, want, s.Posture, "at %s", s.ISOTimestamp())
	}
}

func TestResampleToGrid_UnsortedInput(t *testing.T) {
	start := sessionStart
	events := []models.Event{
		{Start: start.Add(20 * time.Minute), End: start.Add(30 * time.Minute), Posture: models.PostureProne, Origin: models.OriginNormal},
		{Start: start, End: start.Add(10 * time.Minute), Posture: models.PostureSupine, Origin: models.OriginNormal},
		{Start: start.Add(10 * time.Minute), End: start.Add(20 * time.Minute), Posture: models.PostureLeftLateral, Origin: models.OriginNormal},
	}

	grid, err := ResampleToGrid(events, 10, start, start.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, grid, 4)
	assert.Equal(t, models.PostureSupine, grid[0].Posture)
	assert.Equal(t, models.PostureLeftLateral, grid[1].Posture)
	assert.Equal(t, models.PostureProne, grid[2].Posture)
	assert.Equal(t, models.PostureProne, grid[3].Posture)

	// вход не изменяется
	assert.Equal(t, models.PostureProne, events[0].Posture)
}

func TestResampleToGrid_Errors(t *testing.T) {
	events := []models.Event{{Start: sessionStart, End: sessionStart.Add(time.Hour), Posture: models.PostureSupine, Origin: models.OriginNormal}}

	_, err := ResampleToGrid(events, 0, sessionStart, sessionStart.Add(time.Hour))
	assert.True(t, errors.Is(err, models.ErrInvalidStep))

	_, err = ResampleToGrid(nil, 5, sessionStart, sessionStart.Add(time.Hour))
	assert.True(t, errors.Is(err, models.ErrNoEvents))

	_, err = ResampleToGrid(events, 5, sessionStart, sessionStart)
	assert.True(t, errors.Is(err, models.ErrInvalidSessionWindow))
}
