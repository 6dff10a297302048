package domain

import (
	"testing"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
)

func players(scores ...int) []Player {
	out := make([]Player, len(scores))
	for i, s := range scores {
		out[i] = Player{UserID: string(rune('a' + i)), Number: i + 1, Score: s}
	}
	return out
}

func TestDetermineWinner(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   string
		wins   bool
	}{
		{name: "nobody at threshold", scores: []int{30, 20}, wins: false},
		{name: "tie at max above threshold", scores: []int{55, 55}, wins: false},
		{name: "unique max above threshold", scores: []int{55, 65}, want: "b", wins: true},
		{name: "exactly threshold", scores: []int{50, 10, 49}, want: "a", wins: true},
		{name: "tie at max with third eligible", scores: []int{70, 52, 70}, wins: false},
		{name: "no players", scores: nil, wins: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DetermineWinner(players(tc.scores...), DefaultWinThreshold)
			if ok != tc.wins {
				t.Fatalf("winner declared = %v, want %v", ok, tc.wins)
			}
			if ok && got.UserID != tc.want {
				t.Fatalf("winner = %q, want %q", got.UserID, tc.want)
			}
		})
	}
}

func TestValidateAwards(t *testing.T) {
	if err := ValidateAwards(map[string]int{"a": 0, "b": 10}); err != nil {
		t.Fatalf("validate: %v", err)
	}
	err := ValidateAwards(map[string]int{"a": -1})
	if code := apperrors.CodeOf(err); code != apperrors.CodeScoreNegative {
		t.Fatalf("code = %s, want %s", code, apperrors.CodeScoreNegative)
	}
}
