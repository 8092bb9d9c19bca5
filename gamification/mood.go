package gamification

import (
	"time"

	"github.com/cppla/fitquest/models"
)

// MaxMoodEntries bounds the mood log; older entries are dropped first.
const MaxMoodEntries = 30

func appendMood(log []models.MoodEntry, m models.Mood, now time.Time) []models.MoodEntry {
	log = append(log, models.MoodEntry{Mood: m, Timestamp: now.UTC()})
	if n := len(log); n > MaxMoodEntries {
		trimmed := make([]models.MoodEntry, MaxMoodEntries)
		copy(trimmed, log[n-MaxMoodEntries:])
		log = trimmed
	}
	return log
}
