package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/foodmarket-client/internal/model"
)

// ToggleDriverAvailability переключает доступность водителя и возвращает новое значение.
// При ошибке сервера доступность возвращается к прежнему значению.
func (s *Store) ToggleDriverAvailability(ctx context.Context) (bool, error) {
	var prev bool
	err := s.mutate(ctx, mutation{
		op:     "driver_availability",
		policy: RevertOnFailure,
		gate:   gateAlways,
		apply: func() {
			prev = s.driverAvailable
			s.driverAvailable = !prev
		},
		remote: func(ctx context.Context, b Backend) error {
			return b.ToggleDriverAvailability(ctx)
		},
		revert: func() {
			s.driverAvailable = prev
		},
	})
	if err != nil {
		return prev, err
	}
	return !prev, nil
}

// UpdateDriverSchedule обновляет расписание одного дня. При ошибке сервера день
// возвращается к прежнему значению, остальные дни не затрагиваются.
func (s *Store) UpdateDriverSchedule(ctx context.Context, day model.Weekday, upd model.DayUpdate) error {
	if !day.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidWeekday, day)
	}

	var (
		prev    model.DaySchedule
		existed bool
	)
	return s.mutate(ctx, mutation{
		op:     "driver_schedule",
		policy: RevertOnFailure,
		gate:   gateAlways,
		apply: func() {
			prev, existed = s.schedule[day]
			s.schedule[day] = upd.Apply(prev)
		},
		remote: func(ctx context.Context, b Backend) error {
			return b.UpdateDriverDay(ctx, day, upd.APIFields())
		},
		revert: func() {
			if existed {
				s.schedule[day] = prev
				return
			}
			delete(s.schedule, day)
		},
	})
}

// ToggleDayAvailability включает или выключает день в расписании водителя.
func (s *Store) ToggleDayAvailability(ctx context.Context, day model.Weekday) error {
	if !day.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidWeekday, day)
	}
	s.mu.Lock()
	enabled := !s.schedule[day].Enabled
	s.mu.Unlock()

	return s.UpdateDriverSchedule(ctx, day, model.DayUpdate{Enabled: &enabled})
}

// loadDriverData загружает расписание водителя; при ошибке ставит расписание по умолчанию.
func (s *Store) loadDriverData(ctx context.Context) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	rctx, done := s.sessionScope(ctx)
	entries, err := s.remote.DriverSchedule(rctx)
	done()

	schedule := model.ScheduleFromEntries(entries)
	if err != nil {
		s.recordFailure(ctx, "driver_schedule_load", KeepOptimisticOnFailure, err)
		schedule = model.DefaultDriverSchedule()
	} else {
		s.metrics.ObserveSync("driver_schedule_load", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.Debug("driver schedule dropped, session changed")
		return
	}
	s.schedule = schedule
	s.logger.Debug("driver schedule loaded", zap.Int("days", len(schedule)))
}
