package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/ivanoskov/kopilka_bot/internal/model"
)

// ChartGenerator генерирует графики по копилкам
type ChartGenerator struct{}

// NewChartGenerator создает новый генератор графиков
func NewChartGenerator() *ChartGenerator {
	return &ChartGenerator{}
}

// max возвращает максимальное из двух чисел
func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// GenerateGoalProgress рисует столбцы прогресса копилок в процентах.
// Прогресс выше 100% обрезается, шкала всегда от 0 до 100.
func (g *ChartGenerator) GenerateGoalProgress(names []string, goals []model.Goal) ([]byte, error) {
	if len(names) == 0 || len(names) != len(goals) {
		return nil, errors.New("no goals to draw")
	}

	bars := make([]chart.Value, len(names))
	for i, name := range names {
		progress := goals[i].Progress()
		if progress > 100 {
			progress = 100
		}

		color := chart.ColorBlue
		if progress >= 100 {
			color = chart.ColorGreen
		}
		bars[i] = chart.Value{
			Label: fmt.Sprintf("%s (%.0f%%)", name, goals[i].Progress()),
			Value: progress,
			Style: chart.Style{
				StrokeColor: color,
				FillColor:   color,
				FontSize:    12,
				FontColor:   chart.ColorBlack,
			},
		}
	}

	graph := chart.BarChart{
		Title: "Прогресс копилок",
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    max(600, 160*len(bars)+200),
		Height:   500,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f%%", v.(float64))
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	err := graph.Render(chart.PNG, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to render goal chart: %w", err)
	}

	return buffer.Bytes(), nil
}
