package logging

import "strings"

// FormatSubject builds the stage/scene subject string used in console output.
func FormatSubject(stage, scene string) string {
	stage = strings.TrimSpace(stage)
	scene = strings.TrimSpace(scene)
	switch {
	case stage != "" && scene != "":
		return capitalize(stage) + " · Scene #" + scene
	case stage != "":
		return capitalize(stage)
	case scene != "":
		return "Scene #" + scene
	default:
		return ""
	}
}

func capitalize(value string) string {
	if len(value) <= 1 {
		return strings.ToUpper(value)
	}
	return strings.ToUpper(value[:1]) + strings.ToLower(value[1:])
}
