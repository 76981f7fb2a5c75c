package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ivanoskov/kopilka_bot/internal/model"
	"github.com/ivanoskov/kopilka_bot/internal/security"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newFileStore(t *testing.T) (*Store, string, string) {
	t.Helper()
	dir := t.TempDir()
	profiles := filepath.Join(dir, "user_data.json")
	states := filepath.Join(dir, "user_states.json")
	c, _ := security.NewCipher(testKey)
	return NewStore(NewFileDocuments(), c, profiles, states, zerolog.Nop()), profiles, states
}

// flakyDocuments - документы в памяти, первые failures записей падают
type flakyDocuments struct {
	mu       sync.Mutex
	data     map[string][]byte
	failures int
	writes   int
}

func (d *flakyDocuments) Read(_ context.Context, name string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data[name], nil
}

func (d *flakyDocuments) Write(_ context.Context, name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	if d.failures > 0 {
		d.failures--
		return errors.New("disk is full")
	}
	if d.data == nil {
		d.data = make(map[string][]byte)
	}
	d.data[name] = append([]byte(nil), data...)
	return nil
}

func TestLoadMissingFilesIsEmpty(t *testing.T) {
	store, _, _ := newFileStore(t)
	ctx := context.Background()

	profiles, err := store.LoadProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 0 {
		t.Fatalf("profiles = %v", profiles)
	}
	states, err := store.LoadStates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 0 {
		t.Fatalf("states = %v", states)
	}
}

func TestProfilesRoundTripEncryptsCredentials(t *testing.T) {
	store, path, _ := newFileStore(t)
	ctx := context.Background()

	p := model.NewUserProfile()
	p.Goals["Отпуск"] = &model.Goal{Current: 2500, Target: 10000}
	p.ExchangeAPIKey = "plain-api-key"
	p.ExchangeAPISecret = "plain-api-secret"
	if err := store.SaveProfiles(ctx, map[int64]*model.UserProfile{42: p}); err != nil {
		t.Fatal(err)
	}

	if p.ExchangeAPIKey != "plain-api-key" {
		t.Fatal("saving must not mutate the in-memory profile")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "plain-api-key") || strings.Contains(string(raw), "plain-api-secret") {
		t.Fatal("credentials stored in plaintext")
	}

	loaded, err := store.LoadProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := loaded[42]
	if got.ExchangeAPIKey != "plain-api-key" || got.ExchangeAPISecret != "plain-api-secret" {
		t.Fatalf("credentials after load = %q / %q", got.ExchangeAPIKey, got.ExchangeAPISecret)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("loaded profile = %+v, want %+v", got, p)
	}
}

func TestSaveLoadIsIdempotent(t *testing.T) {
	store, _, _ := newFileStore(t)
	ctx := context.Background()

	p := model.NewUserProfile()
	p.ShoppingList["Продукты"] = []string{"хлеб", "хлеб"}
	p.Notes["n1"] = &model.Note{Title: "t", Content: "c"}
	p.Reminders["r1"] = &model.Reminder{Title: "t", Date: "2025-01-01", Time: "10:00"}
	p.ExchangeAPIKey = "k"
	p.ExchangeAPISecret = "s"
	if err := store.SaveProfiles(ctx, map[int64]*model.UserProfile{1: p, 2: model.NewUserProfile()}); err != nil {
		t.Fatal(err)
	}

	first, err := store.LoadProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveProfiles(ctx, first); err != nil {
		t.Fatal(err)
	}
	second, err := store.LoadProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("save(load()) changed data:\n%+v\n%+v", first, second)
	}
}

func TestDecryptionFailureIsIsolated(t *testing.T) {
	store, path, _ := newFileStore(t)
	ctx := context.Background()

	alice := model.NewUserProfile()
	alice.ExchangeAPIKey, alice.ExchangeAPISecret = "alice-key", "alice-secret"
	bob := model.NewUserProfile()
	bob.ExchangeAPIKey, bob.ExchangeAPISecret = "bob-key", "bob-secret"
	if err := store.SaveProfiles(ctx, map[int64]*model.UserProfile{1: alice, 2: bob}); err != nil {
		t.Fatal(err)
	}

	var raw map[string]map[string]interface{}
	data, _ := os.ReadFile(path)
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	raw["1"]["exchangeApiSecret"] = "AQIDBAUGBwgJCgsMDQ4PEBESExQVFhcYGRobHB0eHyAhIiMkJSYnKCkqKywtLi8w"
	data, _ = json.Marshal(raw)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded[1].ExchangeAPISecret != security.DecryptionFailed {
		t.Fatalf("corrupted secret = %q, want sentinel", loaded[1].ExchangeAPISecret)
	}
	if loaded[1].ExchangeAPIKey != "alice-key" {
		t.Fatalf("untouched key of the same user = %q", loaded[1].ExchangeAPIKey)
	}
	if loaded[2].ExchangeAPIKey != "bob-key" || loaded[2].ExchangeAPISecret != "bob-secret" {
		t.Fatal("other user affected by corrupted ciphertext")
	}
}

func TestSentinelIsPersistedVerbatim(t *testing.T) {
	store, path, _ := newFileStore(t)
	ctx := context.Background()

	p := model.NewUserProfile()
	p.ExchangeAPIKey = "key"
	p.ExchangeAPISecret = security.DecryptionFailed
	if err := store.SaveProfiles(ctx, map[int64]*model.UserProfile{7: p}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"exchangeApiSecret": "`+security.DecryptionFailed+`"`) {
		t.Fatalf("sentinel was not written verbatim:\n%s", data)
	}
	loaded, err := store.LoadProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded[7].ExchangeAPISecret != security.DecryptionFailed {
		t.Fatalf("secret = %q", loaded[7].ExchangeAPISecret)
	}
}

func TestLoadBackfillsLegacyRecords(t *testing.T) {
	store, path, _ := newFileStore(t)
	legacy := `{"5": {"piggy_banks": {"Машина": {"current": 1, "target": 2}}}, "6": null}`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadProfiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []int64{5, 6} {
		p := loaded[id]
		if p == nil || p.Goals == nil || p.Notes == nil || p.Reminders == nil || p.ShoppingList == nil {
			t.Fatalf("profile %d not backfilled: %+v", id, p)
		}
		if _, ok := p.ShoppingList["Аптека"]; !ok {
			t.Fatalf("profile %d missing default category", id)
		}
	}
	if loaded[5].Goals["Машина"].Target != 2 {
		t.Fatal("legacy goals lost")
	}
}

func TestLegacyFernetCredentialsNeedReentry(t *testing.T) {
	store, path, _ := newFileStore(t)
	legacy := `{"5": {"bybit_api_key": "gAAAAABmQ1x2a2V5LWZyb20tdGhlLW9sZC1ib3Q=", "bybit_api_secret": "gAAAAABmQ1x2c2VjcmV0"}}`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.LoadProfiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p := loaded[5]
	if p.ExchangeAPIKey != security.DecryptionFailed || p.ExchangeAPISecret != security.DecryptionFailed {
		t.Fatalf("credentials = %q / %q", p.ExchangeAPIKey, p.ExchangeAPISecret)
	}
}

func TestStatesRoundTripAndUnknownTokens(t *testing.T) {
	store, _, statesPath := newFileStore(t)
	ctx := context.Background()

	states := map[int64]model.State{
		1: model.AwaitingGoalTarget{Name: "Vacation"},
		2: model.AwaitingShoppingItem{Category: "Продукты"},
		3: nil,
	}
	if err := store.SaveStates(ctx, states); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.LoadStates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 || loaded[1] != (model.AwaitingGoalTarget{Name: "Vacation"}) {
		t.Fatalf("states = %#v", loaded)
	}

	if err := os.WriteFile(statesPath, []byte(`{"1": "CREATING_PIGGY_NAME", "2": "AwaitingNoteTitle"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	loaded, err = store.LoadStates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded[1]; ok {
		t.Fatal("undecodable state must be dropped")
	}
	if loaded[2] != (model.AwaitingNoteTitle{}) {
		t.Fatalf("state 2 = %#v", loaded[2])
	}
}

func TestUpdateSavesAndSkips(t *testing.T) {
	store, path, _ := newFileStore(t)
	ctx := context.Background()

	err := store.Update(ctx, func(s *Snapshot) error {
		s.Profile(10).Goals["x"] = &model.Goal{Target: 5}
		s.SetState(10, model.ViewingGoal{Goal: "x"})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	before, _ := os.ReadFile(path)
	err = store.Update(ctx, func(s *Snapshot) error {
		s.Profile(11)
		return ErrNoChanges
	})
	if err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatal("ErrNoChanges must skip the save")
	}

	boom := errors.New("boom")
	if err := store.Update(ctx, func(s *Snapshot) error {
		s.Profile(10).Goals["y"] = &model.Goal{}
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	err = store.Update(ctx, func(s *Snapshot) error {
		if _, ok := s.Profiles[10].Goals["y"]; ok {
			t.Error("changes of a failed update must be discarded")
		}
		if s.State(10) != (model.ViewingGoal{Goal: "x"}) {
			t.Errorf("state = %#v", s.State(10))
		}
		s.ClearState(10)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	states, _ := store.LoadStates(ctx)
	if len(states) != 0 {
		t.Fatalf("states = %#v", states)
	}
}

func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	store, _, _ := newFileStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := int64(0); i < 20; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			if err := store.Update(ctx, func(s *Snapshot) error {
				s.Profile(userID).Goals["g"] = &model.Goal{Target: float64(userID + 1)}
				return nil
			}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	profiles, err := store.LoadProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 20 {
		t.Fatalf("profiles = %d, want 20", len(profiles))
	}
}

func TestWriteIsRetriedOnce(t *testing.T) {
	c, _ := security.NewCipher(testKey)
	ctx := context.Background()

	docs := &flakyDocuments{failures: 1}
	store := NewStore(docs, c, "profiles", "states", zerolog.Nop())
	store.retryDelay = 0
	if err := store.SaveStates(ctx, map[int64]model.State{1: model.AwaitingNoteTitle{}}); err != nil {
		t.Fatalf("single failure must be retried: %v", err)
	}
	if docs.writes != 2 {
		t.Fatalf("writes = %d, want 2", docs.writes)
	}

	docs = &flakyDocuments{failures: 2}
	store = NewStore(docs, c, "profiles", "states", zerolog.Nop())
	store.retryDelay = 0
	if err := store.SaveStates(ctx, nil); err == nil {
		t.Fatal("second failure must surface")
	}
	if docs.writes != 2 {
		t.Fatalf("writes = %d, want 2", docs.writes)
	}
}
