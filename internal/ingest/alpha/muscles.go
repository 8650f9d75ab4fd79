package alpha

import (
	"strings"

	"github.com/claude/recoverycoach/internal/models"
)

// keywordMuscles maps a lower-case keyword found in an exercise name to the
// muscle groups it trains. The first matching rule wins, so more specific
// keywords come before generic ones.
var keywordMuscles = []struct {
	keyword string
	muscles []models.Muscle
}{
	{"calf", []models.Muscle{models.Calves}},
	{"leg curl", []models.Muscle{models.Hamstrings}},
	{"romanian", []models.Muscle{models.Hamstrings, models.Glutes}},
	{"deadlift", []models.Muscle{models.Hamstrings, models.Glutes, models.Back}},
	{"hyperextension", []models.Muscle{models.Glutes, models.Hamstrings, models.Back}},
	{"hip thrust", []models.Muscle{models.Glutes}},
	{"glute", []models.Muscle{models.Glutes}},
	{"leg extension", []models.Muscle{models.Quads}},
	{"leg press", []models.Muscle{models.Quads, models.Glutes}},
	{"squat", []models.Muscle{models.Quads, models.Glutes}},
	{"lunge", []models.Muscle{models.Quads, models.Glutes}},
	{"leg raise", []models.Muscle{models.Core}},
	{"crunch", []models.Muscle{models.Core}},
	{"plank", []models.Muscle{models.Core}},
	{" ab ", []models.Muscle{models.Core}},
	{"reverse fly", []models.Muscle{models.Shoulders}},
	{"reverse pec", []models.Muscle{models.Shoulders}},
	{"rear delt", []models.Muscle{models.Shoulders}},
	{" row", []models.Muscle{models.Back, models.Biceps}},
	{"bench press", []models.Muscle{models.Chest, models.Triceps}},
	{"chest", []models.Muscle{models.Chest}},
	{"fly", []models.Muscle{models.Chest}},
	{" dip", []models.Muscle{models.Chest, models.Triceps}},
	{"push-up", []models.Muscle{models.Chest, models.Triceps}},
	{"pushup", []models.Muscle{models.Chest, models.Triceps}},
	{"overhead press", []models.Muscle{models.Shoulders, models.Triceps}},
	{"shoulder press", []models.Muscle{models.Shoulders, models.Triceps}},
	{"lateral raise", []models.Muscle{models.Shoulders}},
	{"face pull", []models.Muscle{models.Shoulders, models.Back}},
	{"shrug", []models.Muscle{models.Back}},
	{"pulldown", []models.Muscle{models.Back, models.Biceps}},
	{"pull-up", []models.Muscle{models.Back, models.Biceps}},
	{"pullup", []models.Muscle{models.Back, models.Biceps}},
	{" chin", []models.Muscle{models.Back, models.Biceps}},
	{"wrist", []models.Muscle{models.Forearms}},
	{"farmer", []models.Muscle{models.Forearms}},
	{"hammer curl", []models.Muscle{models.Biceps, models.Forearms}},
	{"curl", []models.Muscle{models.Biceps}},
	{"pushdown", []models.Muscle{models.Triceps}},
	{"skull", []models.Muscle{models.Triceps}},
	{"tricep", []models.Muscle{models.Triceps}},
	{"press", []models.Muscle{models.Chest, models.Shoulders, models.Triceps}},
}

// MusclesFor returns the muscle groups trained by the named exercise, or nil
// when no keyword matches.
func MusclesFor(exercise string) []models.Muscle {
	name := " " + strings.ToLower(strings.TrimSpace(exercise)) + " "
	for _, rule := range keywordMuscles {
		if strings.Contains(name, rule.keyword) {
			return append([]models.Muscle(nil), rule.muscles...)
		}
	}
	return nil
}
