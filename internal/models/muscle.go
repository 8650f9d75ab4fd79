package models

// Muscle is a muscle-group name from the fixed catalog.
type Muscle string

const (
	Quads      Muscle = "quads"
	Hamstrings Muscle = "hamstrings"
	Glutes     Muscle = "glutes"
	Calves     Muscle = "calves"
	Chest      Muscle = "chest"
	Back       Muscle = "back"
	Shoulders  Muscle = "shoulders"
	Biceps     Muscle = "biceps"
	Triceps    Muscle = "triceps"
	Core       Muscle = "core"
	Forearms   Muscle = "forearms"
)

// catalog is the closed set of muscle groups in display order.
var catalog = [...]Muscle{
	Quads, Hamstrings, Glutes, Calves, Chest, Back,
	Shoulders, Biceps, Triceps, Core, Forearms,
}

var catalogIndex = func() map[Muscle]int {
	idx := make(map[Muscle]int, len(catalog))
	for i, m := range catalog {
		idx[m] = i
	}
	return idx
}()

// Catalog returns the muscle catalog in its canonical order.
// The returned slice is a fresh copy.
func Catalog() []Muscle {
	out := make([]Muscle, len(catalog))
	copy(out, catalog[:])
	return out
}

// Valid reports whether m belongs to the catalog.
func (m Muscle) Valid() bool {
	_, ok := catalogIndex[m]
	return ok
}

// SortMuscles orders ms by catalog position in place. Unknown names sort last.
func SortMuscles(ms []Muscle) {
	// Insertion sort: inputs are at most len(catalog) long.
	for i := 1; i < len(ms); i++ {
		for j := i; j > 0 && position(ms[j]) < position(ms[j-1]); j-- {
			ms[j], ms[j-1] = ms[j-1], ms[j]
		}
	}
}

func position(m Muscle) int {
	if i, ok := catalogIndex[m]; ok {
		return i
	}
	return len(catalog)
}
