package game

import "strings"

// ReviewClass groups review summaries for display.
type ReviewClass string

const (
	ReviewPositive ReviewClass = "positive"
	ReviewMixed    ReviewClass = "mixed"
	ReviewNegative ReviewClass = "negative"
	ReviewNeutral  ReviewClass = "neutral"
)

var reviewKeywords = []struct {
	class    ReviewClass
	keywords []string
}{
	{ReviewPositive, []string{"положительные", "positive"}},
	{ReviewMixed, []string{"смешанные", "mixed"}},
	{ReviewNegative, []string{"отрицательные", "negative"}},
}

// ClassifyReview maps a localized summary label to a class. Labels are
// matched case-insensitively on their English and Russian keywords; anything
// else is neutral.
func ClassifyReview(summary string) ReviewClass {
	s := strings.ToLower(summary)
	for _, k := range reviewKeywords {
		for _, kw := range k.keywords {
			if strings.Contains(s, kw) {
				return k.class
			}
		}
	}
	return ReviewNeutral
}
