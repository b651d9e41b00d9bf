package source

import "errors"

// Sentinel kinds for source errors.
var (
	ErrNoExport    = errors.New("no export found")
	ErrNoHabit     = errors.New("no habit folder matches")
	ErrNoCSV       = errors.New("no csv file in folder")
	ErrEmptyCSV    = errors.New("csv has no header")
	ErrUnknownKind = errors.New("unknown source kind")
)
