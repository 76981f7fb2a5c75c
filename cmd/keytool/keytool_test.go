package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ivanoskov/kopilka_bot/internal/config"
	"github.com/ivanoskov/kopilka_bot/internal/model"
	"github.com/ivanoskov/kopilka_bot/internal/repository"
	"github.com/ivanoskov/kopilka_bot/internal/security"
)

const (
	oldKey = "1111111111111111111111111111111111111111111111111111111111111111"
	newKey = "2222222222222222222222222222222222222222222222222222222222222222"
)

func storeWith(key, file string) *repository.Store {
	c, _ := security.NewCipher(key)
	return repository.NewStore(repository.NewFileDocuments(), c, file, "", zerolog.Nop())
}

func TestReencryptFile(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "user_data.json")

	ok := model.NewUserProfile()
	ok.ExchangeAPIKey, ok.ExchangeAPISecret = "key", "secret"
	broken := model.NewUserProfile()
	broken.ExchangeAPIKey, broken.ExchangeAPISecret = security.DecryptionFailed, "s2"
	err := storeWith(oldKey, file).SaveProfiles(ctx, map[int64]*model.UserProfile{1: ok, 2: broken, 3: model.NewUserProfile()})
	if err != nil {
		t.Fatal(err)
	}

	report, err := reencryptFile(ctx, file, oldKey, newKey)
	if err != nil {
		t.Fatal(err)
	}
	if report.profiles != 3 || report.fields != 3 || len(report.failed) != 1 || report.failed[0] != 2 {
		t.Fatalf("report = %+v", report)
	}

	profiles, err := storeWith(newKey, file).LoadProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p := profiles[1]; p.ExchangeAPIKey != "key" || p.ExchangeAPISecret != "secret" {
		t.Fatalf("profile 1 = %q / %q", p.ExchangeAPIKey, p.ExchangeAPISecret)
	}
	if p := profiles[2]; p.ExchangeAPIKey != security.DecryptionFailed || p.ExchangeAPISecret != "s2" {
		t.Fatalf("profile 2 = %q / %q", p.ExchangeAPIKey, p.ExchangeAPISecret)
	}

	stale, err := storeWith(oldKey, file).LoadProfiles(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stale[1].ExchangeAPISecret != security.DecryptionFailed {
		t.Fatal("old key still decrypts the rewritten file")
	}
}

func TestReencryptRejectsBadKeys(t *testing.T) {
	file := filepath.Join(t.TempDir(), "user_data.json")
	if _, err := reencryptFile(context.Background(), file, "short", newKey); err == nil {
		t.Fatal("expected error for bad old key")
	}
	if _, err := reencryptFile(context.Background(), file, oldKey, ""); err == nil {
		t.Fatal("expected error for missing new key")
	}
}

func TestCheckConfig(t *testing.T) {
	cfg, err := config.FromEnv(func(key string) string {
		return map[string]string{"TELEGRAM_TOKEN": "123:secret-token", "ENCRYPTION_KEY": oldKey}[key]
	})
	if err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	problems := checkConfig(cfg, func(name, status string) { out.WriteString(name + " " + status + "\n") })
	if problems != 0 {
		t.Fatalf("problems = %d\n%s", problems, out.String())
	}
	if strings.Contains(out.String(), "secret-token") || strings.Contains(out.String(), oldKey) {
		t.Fatalf("secrets printed:\n%s", out.String())
	}

	cfg.TelegramToken = ""
	cfg.EncryptionKey = "xyz"
	if problems := checkConfig(cfg, func(string, string) {}); problems != 2 {
		t.Fatalf("problems = %d, want 2", problems)
	}
}
