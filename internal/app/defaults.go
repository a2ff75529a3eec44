package app

import "wedding-pool-service/internal/domain"

// DefaultCategories is the wedding catalog seeded into a new event when the
// creator does not supply their own categories.
func DefaultCategories() []domain.CategorySeed {
	return []domain.CategorySeed{
		{
			Title:       "First Dance Song Genre",
			Description: "What genre will the couple's first dance song be?",
			Options:     []string{"Love Ballad", "Classic Rock", "Pop Hit", "Country Song", "R&B/Soul", "Other"},
			Points:      10,
		},
		{
			Title:       "Who Will Cry First?",
			Description: "Who will be the first to shed tears during the ceremony?",
			Options:     []string{"Bride", "Groom", "Mother of Bride", "Mother of Groom", "Father of Bride", "Someone Else"},
			Points:      15,
		},
		{
			Title:       "Bouquet Catch",
			Description: "Who will catch the bouquet?",
			Options:     []string{"Single Friend", "Married Friend", "Family Member", "Child", "Bride's Sister", "No One"},
			Points:      20,
		},
		{
			Title:       "Best Man Speech Duration",
			Description: "How long will the best man's speech be?",
			Options:     []string{"Under 2 minutes", "2-5 minutes", "5-8 minutes", "8-10 minutes", "Over 10 minutes"},
			Points:      10,
		},
		{
			Title:       "Wedding Cake Flavors",
			Description: "How many different cake flavors will there be?",
			Options:     []string{"1 flavor", "2 flavors", "3 flavors", "4+ flavors"},
			Points:      12,
		},
		{
			Title:       "First Dance Disaster",
			Description: "Will there be any mishaps during the first dance?",
			Options:     []string{"Perfect execution", "Minor stumble", "Someone steps on dress", "Music issues", "Major disaster"},
			Points:      25,
		},
		{
			Title:       "Weather Surprise",
			Description: "What will be the biggest weather-related surprise?",
			Options:     []string{"Perfect weather", "Light rain", "Heavy rain", "Unexpected sunshine", "Wind issues", "Temperature surprise"},
			Points:      18,
		},
		{
			Title:       "Guest Count Accuracy",
			Description: "How close will the actual guest count be to the planned number?",
			Options:     []string{"Exact match", "Within 5", "Within 10", "Within 20", "More than 20 off"},
			Points:      15,
		},
		{
			Title:       "Most Emotional Moment",
			Description: "What will be the most emotional part of the ceremony?",
			Options:     []string{"Vows", "Ring exchange", "First kiss", "Walking down aisle", "Parent moments", "Surprise element"},
			Points:      14,
		},
		{
			Title:       "Reception Dance Floor",
			Description: "When will the dance floor be most crowded?",
			Options:     []string{"During first dance", "After dinner", "During parent dances", "Late night", "Never very crowded"},
			Points:      11,
		},
	}
}
