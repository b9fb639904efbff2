package rawpayload

import "time"

// Payload is an extracted document plus the metadata that travels with it to
// staging. Data is the already-serialized JSON body; the staging writer wraps
// it with the metadata envelope. The pipeline run owns a Payload exclusively
// until it is handed to the staging writer.
type Payload struct {
	Endpoint    string
	Year        int
	RetrievedAt time.Time
	RecordCount int
	SourceURL   string
	Data        []byte
	Stats       *StatsMeta
}

// StatsMeta carries the naming fields for per-match statistics payloads.
type StatsMeta struct {
	TournamentID string
	MatchID      string
	StatType     string
	Round        string
	Player1Name  string
	Player2Name  string
}

// Metadata is the envelope header persisted alongside the document.
type Metadata struct {
	Endpoint     string `json:"endpoint"`
	Year         int    `json:"year"`
	RetrievedAt  string `json:"retrieved_at"`
	RecordCount  int    `json:"record_count"`
	SourceURL    string `json:"source_url,omitempty"`
	TournamentID string `json:"tournament_id,omitempty"`
	MatchID      string `json:"match_id,omitempty"`
	StatType     string `json:"stat_type,omitempty"`
}

func (p Payload) Meta() Metadata {
	meta := Metadata{
		Endpoint:    p.Endpoint,
		Year:        p.Year,
		RetrievedAt: p.RetrievedAt.UTC().Format(time.RFC3339),
		RecordCount: p.RecordCount,
		SourceURL:   p.SourceURL,
	}
	if p.Stats != nil {
		meta.TournamentID = p.Stats.TournamentID
		meta.MatchID = p.Stats.MatchID
		meta.StatType = p.Stats.StatType
	}
	return meta
}
