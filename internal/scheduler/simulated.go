package scheduler

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-daily-scheduler/internal/models"
)

// SimulatedAbsenceSource overlays random multi-day vacations on another source.
// It exists for demo runs only; production wires a real leave source.
type SimulatedAbsenceSource struct {
	Base        AvailabilitySource
	Rate        float64
	MaxTeachers int
	MinDays     int
	MaxDays     int
	StartWithin int

	mu     sync.Mutex // guards rng
	rng    *rand.Rand
	logger *zap.Logger
}

// NewSimulatedAbsenceSource builds a seeded simulation. A zero seed uses the clock.
func NewSimulatedAbsenceSource(base AvailabilitySource, rate float64, maxTeachers int, seed int64, logger *zap.Logger) *SimulatedAbsenceSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTeachers <= 0 {
		maxTeachers = 3
	}
	return &SimulatedAbsenceSource{
		Base:        base,
		Rate:        rate,
		MaxTeachers: maxTeachers,
		MinDays:     3,
		MaxDays:     7,
		StartWithin: 10,
		rng:         rand.New(rand.NewSource(seed)),
		logger:      logger,
	}
}

// Load implements AvailabilitySource.
func (s *SimulatedAbsenceSource) Load(ctx context.Context, teachers []models.Teacher, from, to time.Time) (*AvailabilitySnapshot, error) {
	base := s.Base
	if base == nil {
		base = StaticAvailabilitySource{}
	}
	snapshot, err := base.Load(ctx, teachers, from, to)
	if err != nil {
		return nil, err
	}
	count := int(math.Floor(float64(len(teachers)) * s.Rate))
	if count > s.MaxTeachers {
		count = s.MaxTeachers
	}
	if count <= 0 {
		return snapshot, nil
	}

	span := s.MaxDays - s.MinDays + 1
	if span < 1 {
		span = 1
	}
	within := s.StartWithin
	if within < 1 {
		within = 1
	}
	picks := s.draw(len(teachers), count, span, within)
	for _, pick := range picks {
		teacher := teachers[pick.index]
		start := truncateDay(from).AddDate(0, 0, pick.offset)
		end := start.AddDate(0, 0, pick.days-1)
		snapshot.Entry(teacher.ID).AddVacation(start, end)
		s.logger.Info("simulated vacation",
			zap.String("teacher_id", teacher.ID),
			zap.String("teacher", teacher.FullName),
			zap.String("from", DateKey(start)),
			zap.String("to", DateKey(end)),
		)
	}
	return snapshot, nil
}

type absencePick struct {
	index  int
	days   int
	offset int
}

// draw takes every random number one Load needs in a single critical section.
func (s *SimulatedAbsenceSource) draw(n, count, span, within int) []absencePick {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := s.rng.Perm(n)
	picks := make([]absencePick, 0, count)
	for _, idx := range order[:count] {
		picks = append(picks, absencePick{
			index:  idx,
			days:   s.MinDays + s.rng.Intn(span),
			offset: s.rng.Intn(within),
		})
	}
	return picks
}
