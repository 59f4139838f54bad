package quiz

const (
	MinPercent     = 0
	MaxPercent     = 100
	BaselinePoints = 100
)

// Score deducts the distance between guess and correct from current.
// The result never drops below zero. All three inputs must already lie in
// [0, 100]; anything else is reported as InvalidInput.
func Score(current, guess, correct int) (difference, newPoints int, err error) {
	switch {
	case !inPercentRange(current):
		return 0, 0, newInvalidInput("points %d out of range", current)
	case !inPercentRange(guess):
		return 0, 0, newInvalidInput("guess %d out of range", guess)
	case !inPercentRange(correct):
		return 0, 0, newInvalidInput("correct answer %d out of range", correct)
	}

	difference = guess - correct
	if difference < 0 {
		difference = -difference
	}

	return difference, clampPoints(current - difference), nil
}

func inPercentRange(v int) bool {
	return v >= MinPercent && v <= MaxPercent
}

func clampPoints(v int) int {
	return max(MinPercent, min(MaxPercent, v))
}
