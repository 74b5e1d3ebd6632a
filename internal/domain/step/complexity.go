package step

// Complexity grades a project plan.
type Complexity string

const (
	ComplexityEasy        Complexity = "Easy"
	ComplexityModerate    Complexity = "Moderate"
	ComplexityChallenging Complexity = "Challenging"
	ComplexityComplex     Complexity = "Complex"
)

type complexityBand struct {
	maxMinutes int
	maxSteps   int
	grade      Complexity
}

// Bands are checked in order; both limits of a band must hold.
var complexityBands = []complexityBand{
	{maxMinutes: 60, maxSteps: 3, grade: ComplexityEasy},
	{maxMinutes: 180, maxSteps: 5, grade: ComplexityModerate},
	{maxMinutes: 360, maxSteps: 8, grade: ComplexityChallenging},
}

// AssessComplexity grades a plan by its total time in minutes and step count.
func AssessComplexity(totalMinutes, totalSteps int) Complexity {
	for _, band := range complexityBands {
		if totalMinutes <= band.maxMinutes && totalSteps <= band.maxSteps {
			return band.grade
		}
	}
	return ComplexityComplex
}
