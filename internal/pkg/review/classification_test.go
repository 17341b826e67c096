package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		rating int
		want   Classification
	}{
		{rating: 1, want: Negative},
		{rating: 5, want: Negative},
		{rating: 6, want: Neutral},
		{rating: 8, want: Neutral},
		{rating: 9, want: Positive},
		{rating: 10, want: Positive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.rating), "rating %d", tt.rating)
	}
}

func TestClassification_String(t *testing.T) {
	assert.Equal(t, "positive", Positive.String())
	assert.Equal(t, "neutral", Neutral.String())
	assert.Equal(t, "negative", Negative.String())
}

func TestFrom(t *testing.T) {
	assert.Equal(t, Positive, From("positive"))
	assert.Equal(t, Neutral, From("neutral"))
	assert.Equal(t, Negative, From("negative"))
	assert.Equal(t, Classification(0), From("olia"))
}
