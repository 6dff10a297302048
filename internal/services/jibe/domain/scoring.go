package domain

import apperrors "github.com/louisbranch/jibe/internal/platform/errors"

// DefaultWinThreshold is the cumulative score a player needs to be eligible to win.
const DefaultWinThreshold = 50

// DetermineWinner applies the win policy to the players' cumulative scores.
// Nobody wins until someone reaches threshold; after that the winner is the
// single player holding the highest score. A tie at the top blocks the win
// even when every tied player is above threshold.
func DetermineWinner(players []Player, threshold int) (Player, bool) {
	eligible := false
	for _, p := range players {
		if p.Score >= threshold {
			eligible = true
			break
		}
	}
	if !eligible {
		return Player{}, false
	}

	var leader Player
	leaders := 0
	for _, p := range players {
		switch {
		case leaders == 0 || p.Score > leader.Score:
			leader = p
			leaders = 1
		case p.Score == leader.Score:
			leaders++
		}
	}
	if leaders != 1 {
		return Player{}, false
	}
	return leader, true
}

// ValidateAwards rejects negative point awards.
func ValidateAwards(awards map[string]int) error {
	for playerID, points := range awards {
		if points < 0 {
			return apperrors.WithMetadata(apperrors.CodeScoreNegative, "awarded points must not be negative",
				map[string]string{"PlayerID": playerID})
		}
	}
	return nil
}
