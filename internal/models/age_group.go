package models

import (
	"strconv"
	"time"
)

// AgeGroups are the catalog's age bands, one per year from 1 to 10
var AgeGroups = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

// ValidAgeGroup reports whether group is one of AgeGroups
func ValidAgeGroup(group string) bool {
	for _, g := range AgeGroups {
		if g == group {
			return true
		}
	}
	return false
}

// WholeYearAge returns the completed years between birth and now
func WholeYearAge(birth, now time.Time) int {
	birth = birth.In(now.Location())
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// AgeGroupForBirthDate maps a birth date onto its age band. Ages up to one
// share band "1" and everything from ten up collapses into "10".
func AgeGroupForBirthDate(birth, now time.Time) string {
	age := WholeYearAge(birth, now)
	switch {
	case age <= 1:
		return "1"
	case age >= 10:
		return "10"
	default:
		return strconv.Itoa(age)
	}
}
