package match

// Record is one scraped match from a tournament results page. For doubles the
// per-side name/id/nation fields hold both partners comma-joined.
type Record struct {
	Round          string `json:"round" validate:"required"`
	Player1Name    string `json:"player1_name" validate:"required"`
	Player1ID      string `json:"player1_id"`
	Player1Seed    string `json:"player1_seed"`
	Player1Nation  string `json:"player1_nation"`
	Player2Name    string `json:"player2_name" validate:"required"`
	Player2ID      string `json:"player2_id"`
	Player2Seed    string `json:"player2_seed"`
	Player2Nation  string `json:"player2_nation"`
	Score          string `json:"score"`
	StatsURL       string `json:"url"`
	MatchID        string `json:"match_id"`
	Year           int    `json:"year"`
	TournamentName string `json:"tournament_name"`
	TournamentID   string `json:"tournament_id"`
}
