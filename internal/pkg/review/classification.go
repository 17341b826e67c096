package review

// Classification represents feedback classification derived from rating
type Classification int

const (
	// Positive value
	Positive Classification = iota + 1
	// Neutral value
	Neutral
	// Negative value
	Negative
)

var (
	classificationName = map[Classification]string{Positive: "positive", Neutral: "neutral", Negative: "negative"}
	nameClassification = map[string]Classification{"positive": Positive, "neutral": Neutral, "negative": Negative}
)

func (c Classification) String() string {
	return classificationName[c]
}

// From returns classification obj from string
func From(s string) Classification {
	return nameClassification[s]
}

// Classify maps rating to classification. Total and deterministic for
// any rating value. The single canonical boundary table:
// rating >= 9 - positive, rating >= 6 - neutral, else negative
func Classify(rating int) Classification {
	if rating >= 9 {
		return Positive
	}
	if rating >= 6 {
		return Neutral
	}
	return Negative
}
