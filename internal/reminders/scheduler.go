// Package reminders периодически отправляет наступившие напоминания.
package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanoskov/kopilka_bot/internal/repository"
)

// Storage - тот же последовательный доступ к данным, что и у обработчиков
type Storage interface {
	Update(ctx context.Context, fn func(*repository.Snapshot) error) error
}

// Notifier доставляет сообщение пользователю
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Notification - напоминание, которое пора отправить
type Notification struct {
	UserID     int64
	ReminderID string
	Text       string
}

// Scheduler раз в interval ищет наступившие напоминания. Напоминание
// помечается отправленным под блокировкой хранилища, а доставка идет
// после ее снятия; сбой доставки только логируется.
type Scheduler struct {
	store    Storage
	notifier Notifier
	interval time.Duration
	location *time.Location
	now      func() time.Time
	logger   zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(store Storage, notifier Notifier, interval time.Duration, location *time.Location, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if location == nil {
		location = time.Local
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		interval: interval,
		location: location,
		now:      time.Now,
		logger:   logger.With().Str("component", "reminders").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start запускает цикл проверки
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("reminder scheduler already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.interval).Msg("Starting reminder scheduler")

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop останавливает цикл и ждет завершения текущей проверки
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("reminder scheduler not running")
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	s.logger.Info().Msg("Reminder scheduler stopped")
	return nil
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Tick(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// Tick выполняет одну проверку и возвращает число доставленных напоминаний
func (s *Scheduler) Tick(ctx context.Context) int {
	due, err := s.collectDue(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to collect due reminders")
		return 0
	}

	delivered := 0
	for _, n := range due {
		if err := s.notifier.Notify(ctx, n.UserID, n.Text); err != nil {
			s.logger.Error().Err(err).Int64("user_id", n.UserID).Str("reminder_id", n.ReminderID).Msg("Failed to deliver reminder")
			continue
		}
		delivered++
	}
	if len(due) > 0 {
		s.logger.Info().Int("due", len(due)).Int("delivered", delivered).Msg("Reminders processed")
	}
	return delivered
}

// collectDue помечает наступившие напоминания отправленными и возвращает их
func (s *Scheduler) collectDue(ctx context.Context) ([]Notification, error) {
	now := s.now()
	var due []Notification

	err := s.store.Update(ctx, func(snap *repository.Snapshot) error {
		for userID, p := range snap.Profiles {
			for id, r := range p.Reminders {
				if r.Sent || !r.Complete() {
					continue
				}
				at, err := r.Due(s.location)
				if err != nil {
					s.logger.Warn().Err(err).Int64("user_id", userID).Str("reminder_id", id).Msg("Skipping reminder with invalid date")
					continue
				}
				if at.After(now) {
					continue
				}
				r.Sent = true
				due = append(due, Notification{UserID: userID, ReminderID: id, Text: formatNotification(r.Title, r.Content)})
			}
		}
		if len(due) == 0 {
			return repository.ErrNoChanges
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].UserID != due[j].UserID {
			return due[i].UserID < due[j].UserID
		}
		return due[i].ReminderID < due[j].ReminderID
	})
	return due, nil
}

func formatNotification(title, content string) string {
	if content == "" {
		return "⏰ Напоминание: " + title
	}
	return "⏰ Напоминание: " + title + "\n\n" + content
}
