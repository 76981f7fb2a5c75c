package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ivanoskov/kopilka_bot/internal/model"
	"github.com/ivanoskov/kopilka_bot/internal/security"
)

// Snapshot - загруженные профили и состояния, которые функция Update
// изменяет на месте.
type Snapshot struct {
	Profiles map[int64]*model.UserProfile
	States   map[int64]model.State
}

// Profile возвращает профиль пользователя, создавая пустой при первом обращении
func (s *Snapshot) Profile(userID int64) *model.UserProfile {
	p, ok := s.Profiles[userID]
	if !ok || p == nil {
		p = model.NewUserProfile()
		s.Profiles[userID] = p
	}
	return p
}

func (s *Snapshot) State(userID int64) model.State {
	return s.States[userID]
}

// SetState заменяет состояние пользователя; nil означает Idle
func (s *Snapshot) SetState(userID int64, state model.State) {
	if state == nil {
		delete(s.States, userID)
		return
	}
	s.States[userID] = state
}

func (s *Snapshot) ClearState(userID int64) {
	delete(s.States, userID)
}

// Store - единственная точка доступа к профилям и состояниям.
// Update выполняет загрузку, изменение и сохранение под одной блокировкой.
type Store struct {
	mu           sync.Mutex
	docs         Documents
	cipher       *security.Cipher
	profilesName string
	statesName   string
	retryDelay   time.Duration
	logger       zerolog.Logger
}

func NewStore(docs Documents, cipher *security.Cipher, profilesName, statesName string, logger zerolog.Logger) *Store {
	return &Store{
		docs:         docs,
		cipher:       cipher,
		profilesName: profilesName,
		statesName:   statesName,
		retryDelay:   200 * time.Millisecond,
		logger:       logger.With().Str("component", "store").Logger(),
	}
}

// Update загружает свежие данные, вызывает fn и сохраняет результат.
// Если fn вернула ErrNoChanges, сохранение пропускается; при другой ошибке
// изменения отбрасываются.
func (s *Store) Update(ctx context.Context, fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.loadProfiles(ctx)
	if err != nil {
		return err
	}
	states, err := s.loadStates(ctx)
	if err != nil {
		return err
	}

	snap := &Snapshot{Profiles: profiles, States: states}
	if err := fn(snap); err != nil {
		if errors.Is(err, ErrNoChanges) {
			return nil
		}
		return err
	}

	if err := s.saveProfiles(ctx, snap.Profiles); err != nil {
		return err
	}
	return s.saveStates(ctx, snap.States)
}

func (s *Store) LoadProfiles(ctx context.Context) (map[int64]*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadProfiles(ctx)
}

func (s *Store) SaveProfiles(ctx context.Context, profiles map[int64]*model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveProfiles(ctx, profiles)
}

func (s *Store) LoadStates(ctx context.Context) (map[int64]model.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStates(ctx)
}

func (s *Store) SaveStates(ctx context.Context, states map[int64]model.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveStates(ctx, states)
}

func (s *Store) loadProfiles(ctx context.Context) (map[int64]*model.UserProfile, error) {
	data, err := s.docs.Read(ctx, s.profilesName)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	profiles := make(map[int64]*model.UserProfile)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &profiles); err != nil {
			return nil, fmt.Errorf("failed to parse profiles: %w", err)
		}
	}

	for userID, p := range profiles {
		if p == nil {
			p = &model.UserProfile{}
			profiles[userID] = p
		}
		model.Migrate(p)
		p.ExchangeAPIKey = s.cipher.Decrypt(p.ExchangeAPIKey)
		p.ExchangeAPISecret = s.cipher.Decrypt(p.ExchangeAPISecret)
		if p.ExchangeAPIKey == security.DecryptionFailed || p.ExchangeAPISecret == security.DecryptionFailed {
			s.logger.Warn().Int64("user_id", userID).Msg("Stored exchange credentials could not be decrypted")
		}
	}
	return profiles, nil
}

// saveProfiles шифрует ключи в копиях профилей; сентинел пишется как есть
func (s *Store) saveProfiles(ctx context.Context, profiles map[int64]*model.UserProfile) error {
	persisted := make(map[int64]*model.UserProfile, len(profiles))
	for userID, p := range profiles {
		if p == nil {
			continue
		}
		cp := *p
		var err error
		if cp.ExchangeAPIKey, err = s.encryptField(p.ExchangeAPIKey); err != nil {
			return err
		}
		if cp.ExchangeAPISecret, err = s.encryptField(p.ExchangeAPISecret); err != nil {
			return err
		}
		persisted[userID] = &cp
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}
	return s.write(ctx, s.profilesName, data)
}

func (s *Store) encryptField(value string) (string, error) {
	if value == security.DecryptionFailed {
		return value, nil
	}
	encrypted, err := s.cipher.Encrypt(value)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	return encrypted, nil
}

func (s *Store) loadStates(ctx context.Context) (map[int64]model.State, error) {
	data, err := s.docs.Read(ctx, s.statesName)
	if err != nil {
		return nil, fmt.Errorf("failed to load states: %w", err)
	}

	tokens := make(map[int64]string)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &tokens); err != nil {
			return nil, fmt.Errorf("failed to parse states: %w", err)
		}
	}

	states := make(map[int64]model.State, len(tokens))
	for userID, token := range tokens {
		state, err := model.DecodeState(token)
		if err != nil {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("Dropping undecodable conversation state")
			continue
		}
		if state != nil {
			states[userID] = state
		}
	}
	return states, nil
}

func (s *Store) saveStates(ctx context.Context, states map[int64]model.State) error {
	tokens := make(map[int64]string, len(states))
	for userID, state := range states {
		if state == nil {
			continue
		}
		tokens[userID] = model.EncodeState(state)
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode states: %w", err)
	}
	return s.write(ctx, s.statesName, data)
}

// write повторяет неудачную запись один раз
func (s *Store) write(ctx context.Context, name string, data []byte) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryDelay), 1), ctx)
	err := backoff.RetryNotify(func() error {
		return s.docs.Write(ctx, name, data)
	}, b, func(err error, next time.Duration) {
		s.logger.Warn().Err(err).Str("document", name).Dur("retry_in", next).Msg("Write failed, retrying")
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}
