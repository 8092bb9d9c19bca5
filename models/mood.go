package models

import "strings"

// Mood is the validated mood value shared by the mood log and mental-health check-ins.
type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodSad     Mood = "sad"
	MoodAnxious Mood = "anxious"
	MoodNeutral Mood = "neutral"
)

// Moods lists the accepted mood values.
func Moods() []Mood {
	return []Mood{MoodHappy, MoodSad, MoodAnxious, MoodNeutral}
}

// ParseMood normalizes s to lower case and validates it against the enum.
func ParseMood(s string) (Mood, bool) {
	switch m := Mood(strings.ToLower(strings.TrimSpace(s))); m {
	case MoodHappy, MoodSad, MoodAnxious, MoodNeutral:
		return m, true
	default:
		return "", false
	}
}
