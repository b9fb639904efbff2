package tournament

// Summary is one row of the ATP results-archive listing for a year.
// TournamentID is nil when the profile URL has too few path segments to
// derive one; the record is still kept.
type Summary struct {
	Year           int      `json:"year" validate:"required"`
	Name           string   `json:"tournament" validate:"required"`
	TournamentID   *string  `json:"tournament_id"`
	Category       string   `json:"category"`
	City           string   `json:"city"`
	Country        string   `json:"country"`
	DateRange      string   `json:"dates"`
	SinglesWinner  *string  `json:"singles_winner"`
	DoublesWinners []string `json:"doubles_winner"`
	ResultsURL     *string  `json:"url"`
}
