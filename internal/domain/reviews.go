package domain

// RatingSummary aggregates a base trip's reviews the way the trip screen
// presents them: an average plus a per-star histogram.
type RatingSummary struct {
	Average float64     `json:"average"`
	Count   int         `json:"count"`
	ByStar  map[int]int `json:"by_star"`
}

func SummarizeReviews(reviews []Review) RatingSummary {
	summary := RatingSummary{ByStar: map[int]int{}}
	if len(reviews) == 0 {
		return summary
	}

	sum := 0
	for _, r := range reviews {
		sum += r.Rating
		summary.ByStar[r.Rating]++
	}
	summary.Count = len(reviews)
	summary.Average = float64(sum) / float64(len(reviews))
	return summary
}
