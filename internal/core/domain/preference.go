package domain

import "strings"

type Mode string

const (
	ModeFood     Mode = "food"
	ModeRide     Mode = "ride"
	ModeRoadside Mode = "roadside"
)

const DefaultMode = ModeFood

func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFood, ModeRide, ModeRoadside:
		return m, true
	default:
		return "", false
	}
}
