package domain

// EfficiencyReport holds the comparison metrics for one route.
type EfficiencyReport struct {
	RouteID                string
	Stops                  int
	WorkTimeRatio          float64
	AverageInterStopMeters float64
	GeographicSpread       float64
	Compactness            float64
	PriorityOrderQuality   float64
	Score                  float64
	Suggestions            []string
}
