package data

import (
	_ "embed"
)

// RatingGradesJSON holds the rating grade scale served by the reference
// endpoint. Grades are ordered best to worst.
//
//go:embed grades.json
var RatingGradesJSON []byte
