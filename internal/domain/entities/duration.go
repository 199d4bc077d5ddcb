package entities

import (
	"regexp"
	"strconv"
	"time"
)

var timeTextPattern = regexp.MustCompile(`(\d+)\s*([hms])`)

// TimeTextToMilliseconds parses a loose duration text such as "1h30m15s",
// "90m", "45s" or "8h 8m 8s" into milliseconds. Text without any
// recognizable component resolves to 0.
func TimeTextToMilliseconds(text string) int64 {
	var total int64
	for _, m := range timeTextPattern.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		switch m[2] {
		case "h":
			total += value * 60 * 60 * 1000
		case "m":
			total += value * 60 * 1000
		case "s":
			total += value * 1000
		}
	}
	return total
}

// TimeTextToDuration is TimeTextToMilliseconds as a time.Duration.
func TimeTextToDuration(text string) time.Duration {
	return time.Duration(TimeTextToMilliseconds(text)) * time.Millisecond
}
