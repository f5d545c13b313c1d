package generators

import (
	"fmt"
	"math/rand/v2"

	"github.com/Krimson/posture-emulator/internal/models"
)

// TransitionTable допустимые переходы из каждой позы
type TransitionTable map[models.Posture][]models.Posture

// DefaultTransitions таблица переходов по умолчанию
func DefaultTransitions() TransitionTable {
	return TransitionTable{
		models.PostureSupine:       {models.PostureRightLateral, models.PostureLeftLateral},
		models.PostureRightLateral: {models.PostureSupine, models.PostureProne},
		models.PostureLeftLateral:  {models.PostureSupine, models.PostureProne},
		models.PostureProne:        {models.PostureRightLateral, models.PostureLeftLateral},
	}
}

// Allowed варианты перехода. Для позы без записи в таблице это все
// остальные позы в порядке models.AllPostures.
func (t TransitionTable) Allowed(current models.Posture) []models.Posture {
	if options, ok := t[current]; ok && len(options) > 0 {
		return options
	}
	options := make([]models.Posture, 0, len(models.AllPostures)-1)
	for _, p := range models.AllPostures {
		if p != current {
			options = append(options, p)
		}
	}
	return options
}

// Validate проверяет что в таблице только известные позы
func (t TransitionTable) Validate() error {
	for from, options := range t {
		if !from.IsValid() {
			return fmt.Errorf("from %q: %w", from, ErrInvalidTransitionTable)
		}
		for _, to := range options {
			if !to.IsValid() {
				return fmt.Errorf("%s -> %q: %w", from, to, ErrInvalidTransitionTable)
			}
		}
	}
	return nil
}

// TransitionFilter правит уже выбранную позу. Случайность берётся из rng.
type TransitionFilter func(current, next models.Posture, rng *rand.Rand) models.Posture

// NoSupineToProne запрещает переход supino -> prono, заменяя его на боковую позу
func NoSupineToProne(current, next models.Posture, rng *rand.Rand) models.Posture {
	if current != models.PostureSupine || next != models.PostureProne {
		return next
	}
	laterals := []models.Posture{models.PostureRightLateral, models.PostureLeftLateral}
	return laterals[rng.IntN(len(laterals))]
}

// TransitionSelector равномерный выбор из допустимых переходов
type TransitionSelector struct {
	rand    *rand.Rand
	table   TransitionTable
	filters []TransitionFilter
}

func NewTransitionSelector(rng *rand.Rand, table TransitionTable, filters ...TransitionFilter) *TransitionSelector {
	if table == nil {
		table = DefaultTransitions()
	}
	return &TransitionSelector{
		rand:    rng,
		table:   table,
		filters: filters,
	}
}

// Next выбирает следующую позу и прогоняет её через фильтры
func (s *TransitionSelector) Next(current models.Posture) models.Posture {
	options := s.table.Allowed(current)
	next := options[s.rand.IntN(len(options))]
	for _, filter := range s.filters {
		next = filter(current, next, s.rand)
	}
	return next
}
