package ingest

// Result holds the outcome of an import.
type Result struct {
	SessionsReceived int `json:"sessions_received"`
	WorkoutsRecorded int `json:"workouts_recorded"`
	SessionsSkipped  int `json:"sessions_skipped"`

	// UnmappedExercises lists exercise names no muscle group could be derived from.
	UnmappedExercises []string `json:"unmapped_exercises,omitempty"`
	// Rejected holds one message per session that failed validation.
	Rejected []string `json:"rejected,omitempty"`
}
