package generators

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/profile"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

// Номера потоков PCG: общий поток (выбор позы, сбой) и поток нормальных выборок
const (
	generalStream uint64 = 0x67656e
	normalStream  uint64 = 0x6e6f726d
)

// mealWindow окно, в котором курсор подхватывает приём пищи
const mealWindow = time.Minute

// Option настраивает EventGenerator
type Option func(*EventGenerator)

// WithLogger задаёт логгер
func WithLogger(logger *zap.Logger) Option {
	return func(g *EventGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTransitions заменяет таблицу переходов
func WithTransitions(table TransitionTable) Option {
	return func(g *EventGenerator) { g.transitions = table }
}

// WithDurations заменяет таблицу длительностей
func WithDurations(table DurationTable) Option {
	return func(g *EventGenerator) { g.durations = table }
}

// WithFilters добавляет фильтры переходов после NoSupineToProne
func WithFilters(filters ...TransitionFilter) Option {
	return func(g *EventGenerator) { g.filters = append(g.filters, filters...) }
}

var _ EventSource = (*EventGenerator)(nil)

// EventGenerator строит последовательность событий для одной сессии
type EventGenerator struct {
	general     *rand.Rand
	sampler     DurationSource
	selector    PostureSelector
	transitions TransitionTable
	durations   DurationTable
	filters     []TransitionFilter
	logger      *zap.Logger
	stats       GeneratorStats
	mu          sync.RWMutex
}

// NewEventGenerator создаёт генератор с детерминированными потоками из seed
func NewEventGenerator(seed int64, opts ...Option) *EventGenerator {
	g := &EventGenerator{
		general:     rand.New(rand.NewPCG(uint64(seed), generalStream)),
		transitions: DefaultTransitions(),
		durations:   DefaultDurations(),
		filters:     []TransitionFilter{NoSupineToProne},
		logger:      zap.NewNop(),
		stats:       newGeneratorStats(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.sampler = NewDurationSampler(rand.New(rand.NewPCG(uint64(seed), normalStream)))
	g.selector = NewTransitionSelector(g.general, g.transitions, g.filters...)
	return g
}

// GenerateEvents строит события свежим генератором с таблицами по умолчанию
func GenerateEvents(start, end time.Time, p *profile.PatientProfile, seed int64) ([]models.Event, error) {
	return NewEventGenerator(seed).Generate(start, end, p)
}

// Generate строит события, покрывающие [start, end): первое начинается в start,
// каждое следующее в конце предыдущего, последнее заканчивается ровно в end.
func (g *EventGenerator) Generate(start, end time.Time, p *profile.PatientProfile) ([]models.Event, error) {
	if err := utils.ValidateInterval(start, end); err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrInvalidSessionWindow)
	}
	if p == nil {
		return nil, fmt.Errorf("nil profile: %w", models.ErrInvalidProfile)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := g.transitions.Validate(); err != nil {
		return nil, err
	}
	if err := g.durations.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	meals := newMealSchedule(p.MealSchedule(start), start, end)
	preempt := p.Policy() == profile.MealPolicyPreempt
	limit := p.LimitMinutes()

	var events []models.Event
	current := models.PostureSupine
	t := start

	minEvent := utils.MinutesToDuration(MinEventMinutes)

	for t.Before(end) {
		_, due := meals.due(t)

		// Приём пищи ближе minEvent: короткое обычное событие не создаётся.
		// Предыдущее событие продлевается до приёма пищи, в начале сессии
		// приём пищи начинается сразу.
		if next, ok := meals.upcoming(); !due && ok && preempt && next.Sub(t) < minEvent {
			if n := len(events); n > 0 {
				g.extend(&events[n-1], next)
				t = next
				continue
			}
			meals.take()
			due = true
		}

		if due {
			evEnd := t.Add(p.MealDuration)
			if next, ok := meals.upcoming(); ok && preempt && next.Before(evEnd) {
				evEnd = next
			}
			if evEnd.After(end) {
				evEnd = end
			}
			ev := models.Event{
				Start:           t,
				End:             evEnd,
				Posture:         models.PostureSupine,
				DurationMinutes: evEnd.Sub(t).Minutes(),
				Origin:          models.OriginMeal,
			}
			events = append(events, ev)
			g.stats.record(ev)
			g.logger.Debug("meal applied",
				zap.String("at", utils.FormatISO(t)),
				zap.Float64("duration_min", ev.DurationMinutes))

			current = models.PostureSupine
			t = evEnd
			continue
		}

		params := g.durations.Lookup(current)
		duration := g.sampler.Sample(params.Mean, params.StdDev, MinEventMinutes)
		failed := false
		if duration > limit && g.general.Float64() < p.RepositionFailureProbability {
			duration += g.sampler.Sample(params.Mean, params.StdDev, MinEventMinutes)
			failed = true
		}

		evEnd := t.Add(utils.MinutesToDuration(duration))
		truncated := false
		if next, ok := meals.upcoming(); ok && preempt && next.After(t) && next.Before(evEnd) {
			evEnd = next
			truncated = true
		}
		if evEnd.After(end) {
			evEnd = end
			truncated = true
		}
		if truncated {
			duration = evEnd.Sub(t).Minutes()
		}
		if failed && duration <= limit {
			failed = false
		}

		ev := models.Event{
			Start:           t,
			End:             evEnd,
			Posture:         current,
			DurationMinutes: duration,
			Origin:          models.OriginNormal,
			Failed:          failed,
		}
		events = append(events, ev)
		g.stats.record(ev)

		t = evEnd
		current = g.selector.Next(current)
	}

	meals.finish()
	g.stats.MealsApplied += meals.applied
	g.stats.MealsSkipped += meals.skipped

	g.logger.Debug("events generated",
		zap.Int("events", len(events)),
		zap.Int("meals_applied", meals.applied),
		zap.Int("meals_skipped", meals.skipped),
		zap.String("start", utils.FormatISO(start)),
		zap.String("end", utils.FormatISO(end)))

	return events, nil
}

// extend продлевает событие до until и учитывает добавленные минуты
func (g *EventGenerator) extend(ev *models.Event, until time.Time) {
	added := until.Sub(ev.End)
	ev.End = until
	ev.DurationMinutes = ev.End.Sub(ev.Start).Minutes()
	g.stats.MinutesByPosture[ev.Posture] += added.Minutes()
}

// GetStats возвращает статистику работы генератора
func (g *EventGenerator) GetStats() GeneratorStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stats.clone()
}

// Reset сбрасывает статистику. Состояние потоков не меняется.
func (g *EventGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats = newGeneratorStats()
}

// mealSchedule ожидающие приёмы пищи внутри сессии, по возрастанию
type mealSchedule struct {
	times   []time.Time
	next    int
	applied int
	skipped int
}

func newMealSchedule(times []time.Time, start, end time.Time) *mealSchedule {
	inside := make([]time.Time, 0, len(times))
	for _, h := range times {
		if h.Before(start) || !h.Before(end) {
			continue
		}
		inside = append(inside, h)
	}
	sort.Slice(inside, func(i, j int) bool { return inside[i].Before(inside[j]) })

	unique := inside[:0]
	for i, h := range inside {
		if i > 0 && h.Equal(unique[len(unique)-1]) {
			continue
		}
		unique = append(unique, h)
	}
	return &mealSchedule{times: unique}
}

// due возвращает приём пищи, в окно которого попал t. Приёмы пищи,
// окно которых курсор уже прошёл, считаются пропущенными.
func (m *mealSchedule) due(t time.Time) (time.Time, bool) {
	for m.next < len(m.times) {
		h := m.times[m.next]
		if t.Before(h) {
			return time.Time{}, false
		}
		m.next++
		if t.Before(h.Add(mealWindow)) {
			m.applied++
			return h, true
		}
		m.skipped++
	}
	return time.Time{}, false
}

// upcoming ближайший ожидающий приём пищи
func (m *mealSchedule) upcoming() (time.Time, bool) {
	if m.next < len(m.times) {
		return m.times[m.next], true
	}
	return time.Time{}, false
}

// take применяет ближайший приём пищи досрочно
func (m *mealSchedule) take() {
	m.next++
	m.applied++
}

// finish помечает оставшиеся приёмы пищи пропущенными
func (m *mealSchedule) finish() {
	m.skipped += len(m.times) - m.next
	m.next = len(m.times)
}
