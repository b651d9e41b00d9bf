package testexports

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/okian/habitflow/internal/domain/model"
)

// Gaps between consecutive events, in minutes. The largest possible day is
// 20 hours, so no generated day needs more than one rollover per event.
const (
	wakeEarliest   = 5*60 + 30
	wakeSpread     = 4 * 60
	firstMealGap   = 60
	firstMealSpan  = 3 * 60
	mealGap        = 3 * 60
	mealSpan       = 3 * 60
	sleepGap       = 60
	sleepSpan      = 3 * 60
	minuteStep     = 5
	minutesPerDay  = 24 * 60
	skippedCode    = "3"
	weightBase     = 68_000
	weightSpread   = 7_000
	seedMixer      = 0x9e3779b97f4a7c15
	dateColumnName = "Date"
)

// Generate builds an export from cfg. The same cfg always yields the same
// export.
func Generate(cfg Config) Export {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^seedMixer))

	columns := append([]string{dateColumnName}, EventColumns[:]...)
	columns = append(columns, BinaryHabit, ContinuousHabit)
	out := Export{Table: model.Table{Name: "generated", Columns: columns}}

	end := time.Date(cfg.End.Year(), cfg.End.Month(), cfg.End.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < cfg.Days; i++ {
		date := end.AddDate(0, 0, -i)
		day, cells := generateDay(rng, date, cfg.MissingRate)
		cells[dateColumnName] = date.Format(time.DateOnly)
		cells[BinaryHabit] = strconv.Itoa([]int{-1, 0, 2}[rng.IntN(3)])
		cells[ContinuousHabit] = strconv.Itoa(weightBase + rng.IntN(weightSpread))

		out.Table.Rows = append(out.Table.Rows, model.Row{Line: i + 2, Cells: cells})
		out.Days = append(out.Days, day)
	}
	return out
}

func generateDay(rng *rand.Rand, date time.Time, missing float64) (Day, map[string]string) {
	step := func(base, span int) int {
		return base + rng.IntN(span/minuteStep+1)*minuteStep
	}

	var minutes [model.EventCount]int
	minutes[model.WakeUp] = step(wakeEarliest, wakeSpread)
	minutes[model.Meal1] = minutes[model.WakeUp] + step(firstMealGap, firstMealSpan)
	minutes[model.Meal2] = minutes[model.Meal1] + step(mealGap, mealSpan)
	minutes[model.Meal3] = minutes[model.Meal2] + step(mealGap, mealSpan)
	minutes[model.Sleep] = minutes[model.Meal3] + step(sleepGap, sleepSpan)

	day := Day{Date: date}
	cells := make(map[string]string, len(EventColumns)+3)
	// Nothing earlier in the day can show that the first known event crossed
	// midnight, so it lands on Date and every later event shifts with it.
	offset := -1
	for i, col := range EventColumns {
		if rng.Float64() < missing {
			cells[col] = []string{skippedCode, "-1", ""}[rng.IntN(3)]
			day.Minutes[i] = -1
			continue
		}
		if offset < 0 {
			offset = minutes[i] / minutesPerDay * minutesPerDay
		}
		day.Minutes[i] = minutes[i] - offset
		cells[col] = encode(minutes[i]%minutesPerDay, rng.IntN(10))
	}

	if day.Minutes[model.WakeUp] >= 0 && day.Minutes[model.Sleep] >= 0 {
		day.AwakeHours = float64(day.Minutes[model.Sleep]-day.Minutes[model.WakeUp]) / 60
		day.AwakeKnown = true
	}
	return day, cells
}

// encode writes a clock time the way the tracker stores it: HHMM times ten,
// with a last digit that flooring discards. Midnight never gets the digit
// that would turn it into the skipped code.
func encode(minute, noise int) string {
	hhmm := (minute/60)*100 + minute%60
	raw := hhmm*10 + noise
	if strconv.Itoa(raw) == skippedCode {
		raw = 0
	}
	return strconv.Itoa(raw)
}
