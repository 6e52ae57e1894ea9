package sqlitestore

import "time"

// timeLayout is ISO-8601 UTC with nanosecond precision (spec §6:
// "Timestamps are ISO-8601 UTC").
const timeLayout = time.RFC3339Nano

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
