package app

import "wedding-pool-service/internal/domain"

// ScoreBet resolves one bet against the declared correct option. Matching
// is exact string equality; options are server-controlled labels, so the
// service deliberately does not normalize case or whitespace.
func ScoreBet(bet domain.Bet, category domain.BetCategory, correctOption string) (correct bool, points int) {
	if bet.SelectedOption == correctOption {
		return true, category.Points
	}
	return false, 0
}

// SummarizeSettlement tallies a scored category into a SettlementResult.
func SummarizeSettlement(category domain.BetCategory, bets []domain.Bet, correctOption string) domain.SettlementResult {
	result := domain.SettlementResult{
		CategoryID:    category.ID,
		CorrectAnswer: correctOption,
		BetsScored:    len(bets),
	}
	for _, bet := range bets {
		if correct, points := ScoreBet(bet, category, correctOption); correct {
			result.Winners++
			result.PointsAwarded += points
		}
	}
	return result
}
