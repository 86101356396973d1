package models

// Condition names a predicate evaluated per forecast record
type Condition string

const (
	ConditionVeryHot      Condition = "veryHot"
	ConditionRainyAndCold Condition = "rainyAndCold"
)

// Thresholds used by the insight conditions
const (
	VeryHotThresholdC      = 30.0
	ColdThresholdC         = 10.0
	RainThresholdMmPerHour = 0.5
)

// ParseCondition validates a condition name
func ParseCondition(s string) (Condition, error) {
	switch c := Condition(s); c {
	case ConditionVeryHot, ConditionRainyAndCold:
		return c, nil
	default:
		return "", &ValidationError{
			Field:   "condition",
			Value:   s,
			Message: "Invalid condition",
		}
	}
}

// Evaluate reports whether the record satisfies the condition.
// veryHot only needs the temperature; rainyAndCold also needs a precipitation field.
func (c Condition) Evaluate(r ForecastRecord) (bool, error) {
	temp, err := r.TemperatureCelsius()
	if err != nil {
		return false, err
	}

	switch c {
	case ConditionVeryHot:
		return temp > VeryHotThresholdC, nil
	case ConditionRainyAndCold:
		precip, err := r.PrecipitationMm()
		if err != nil {
			return false, err
		}
		return temp < ColdThresholdC && precip > RainThresholdMmPerHour, nil
	default:
		return false, &ValidationError{Field: "condition", Value: string(c), Message: "Invalid condition"}
	}
}
