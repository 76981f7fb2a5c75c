package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/kopilka_bot/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"1500", "1500", nil},
		{"1 500", "1500", nil},
		{"1 500,50", "1500.5", nil},
		{"99,90", "99.9", nil},
		{" 0.01 ", "0.01", nil},
		{"", "", errInvalidAmount},
		{"abc", "", errInvalidAmount},
		{"12abc", "", errInvalidAmount},
		{"0", "", errAmountNotAbove},
		{"-10", "", errAmountNotAbove},
		{"0.005", "0.01", nil},
		{"12.345", "12.35", nil},
		{"1e3", "1000", nil},
		{"999999999999999", "999999999999999", nil},
		{"0.001", "", errAmountNotAbove},
		{"1e-400", "", errAmountNotAbove},
		{"1e-999999999", "", errAmountNotAbove},
		{"1e15", "", errAmountTooLarge},
		{"1e400", "", errAmountTooLarge},
		{strings.Repeat("9", 400), "", errInvalidAmount},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("parseAmount(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAmount(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestValidateGoalName(t *testing.T) {
	p := model.NewUserProfile()
	p.Goals["Отпуск"] = &model.Goal{}

	valid := []string{"Машина", strings.Repeat("я", maxGoalNameLen/2)}
	for _, name := range valid {
		if problem := validateGoalName(p, name); problem != "" {
			t.Errorf("validateGoalName(%q) = %q, want ok", name, problem)
		}
	}

	invalid := []string{"", "Отпуск", "a\nb", strings.Repeat("я", maxGoalNameLen/2+1)}
	for _, name := range invalid {
		if validateGoalName(p, name) == "" {
			t.Errorf("validateGoalName(%q) accepted", name)
		}
	}
}

func TestGoalNameFitsCallbackData(t *testing.T) {
	name := strings.Repeat("x", maxGoalNameLen)
	if l := len(token(cbGoal, name)); l > 64 {
		t.Fatalf("callback data is %d bytes", l)
	}
}

func TestFormatMoney(t *testing.T) {
	if got := formatMoney(decimal.RequireFromString("1234.5"), "USD"); got != "$1,234.50" {
		t.Errorf("USD = %q", got)
	}
	if got := formatMoney(decimal.RequireFromString("10"), "XXX-unknown"); got != "10.00 XXX-unknown" {
		t.Errorf("unknown currency = %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent float64
		filled  int
	}{
		{0, 0}, {25, 2}, {100, 10}, {250, 10}, {-5, 0},
	}
	for _, tt := range tests {
		bar := progressBar(tt.percent)
		if got := strings.Count(bar, "🟩"); got != tt.filled {
			t.Errorf("progressBar(%v) filled = %d, want %d", tt.percent, got, tt.filled)
		}
		if got := strings.Count(bar, "🟩") + strings.Count(bar, "⬜"); got != 10 {
			t.Errorf("progressBar(%v) has %d cells", tt.percent, got)
		}
	}
}
