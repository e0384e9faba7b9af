package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeReviews(t *testing.T) {
	summary := SummarizeReviews(nil)
	assert.Equal(t, 0, summary.Count)
	assert.Equal(t, 0.0, summary.Average)

	summary = SummarizeReviews([]Review{
		{Rating: 5}, {Rating: 5}, {Rating: 4}, {Rating: 2},
	})
	assert.Equal(t, 4, summary.Count)
	assert.InDelta(t, 4.0, summary.Average, 0.001)
	assert.Equal(t, 2, summary.ByStar[5])
	assert.Equal(t, 1, summary.ByStar[4])
	assert.Equal(t, 1, summary.ByStar[2])
	assert.Equal(t, 0, summary.ByStar[1])
}
