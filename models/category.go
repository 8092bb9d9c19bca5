package models

import "strings"

// Category is one of the three tracked activity domains.
type Category string

const (
	CategoryWorkout   Category = "workout"
	CategoryMental    Category = "mental"
	CategoryNutrition Category = "nutrition"
)

// Categories lists the recognized categories in display order.
func Categories() []Category {
	return []Category{CategoryWorkout, CategoryMental, CategoryNutrition}
}

// ParseCategory returns the category named by s. Matching is exact after trimming.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.TrimSpace(s)); c {
	case CategoryWorkout, CategoryMental, CategoryNutrition:
		return c, true
	default:
		return "", false
	}
}
