package charts

import (
	"bytes"
	"testing"

	"github.com/ivanoskov/kopilka_bot/internal/model"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestGenerateGoalProgress(t *testing.T) {
	g := NewChartGenerator()

	tests := []struct {
		name  string
		names []string
		goals []model.Goal
	}{
		{"single", []string{"Отпуск"}, []model.Goal{{Current: 2500, Target: 10000}}},
		{"all empty", []string{"a", "b"}, []model.Goal{{}, {Target: 100}}},
		{"over target", []string{"Машина", "Ноутбук", "Подарок"}, []model.Goal{
			{Current: 150, Target: 100},
			{Current: 10, Target: 100},
			{Current: 0, Target: 0},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			png, err := g.GenerateGoalProgress(tt.names, tt.goals)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(png, pngSignature) {
				t.Fatal("output is not a PNG")
			}
		})
	}
}

func TestGenerateGoalProgressRejectsEmpty(t *testing.T) {
	g := NewChartGenerator()
	if _, err := g.GenerateGoalProgress(nil, nil); err == nil {
		t.Fatal("expected error for no goals")
	}
	if _, err := g.GenerateGoalProgress([]string{"a"}, nil); err == nil {
		t.Fatal("expected error for mismatched input")
	}
}
