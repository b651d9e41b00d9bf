// Package testexports generates synthetic habit tracker exports with known
// answers, for tests and for trying the pipeline without real data.
package testexports

import (
	"time"

	"github.com/okian/habitflow/internal/domain/model"
)

// Config holds generator settings.
type Config struct {
	// Dir receives the export folder.
	Dir string
	// Days is the number of days to generate, ending at End.
	Days int
	End  time.Time
	// Seed makes the output reproducible.
	Seed uint64
	// MissingRate is the chance of each event being skipped, negative or
	// blank.
	MissingRate float64
}

// DefaultConfig returns settings for a year of data.
func DefaultConfig() Config {
	return Config{
		Dir:         ".",
		Days:        365,
		End:         time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		Seed:        1,
		MissingRate: 0.1,
	}
}

// Day is the known answer for one generated row.
type Day struct {
	Date time.Time
	// Minutes since midnight of Date for every event as the pipeline must
	// report it, -1 when unknown. Values past 1440 fall on the next day.
	Minutes [model.EventCount]int
	// AwakeHours is the wake up to sleep span; valid when AwakeKnown.
	AwakeHours float64
	AwakeKnown bool
}

// Export is a generated table plus its known answers, newest day first.
type Export struct {
	Table model.Table
	Days  []Day
}

// Column names of the generated export.
var (
	EventColumns    = [model.EventCount]string{"Wake up", "First Meal", "Second Meal", "Third Meal", "Going sleep"}
	BinaryHabit     = "Meditate"
	ContinuousHabit = "Weight"
)
