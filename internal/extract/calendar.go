// Package extract parses the ATP Tour HTML documents into typed records.
// Both extractors isolate per-item failures: one malformed tournament or match
// is logged and skipped without sinking the rest of the document.
package extract

import (
	"bytes"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/courtsight/atp-ingest/internal/domain/tournament"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CalendarBatch is the result of parsing one results-archive listing.
type CalendarBatch struct {
	Tournaments []tournament.Summary
	Skipped     int
	RetrievedAt time.Time
}

type CalendarExtractor struct {
	logger *logging.Logger
}

func NewCalendarExtractor(logger *logging.Logger) *CalendarExtractor {
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendarExtractor{logger: logger}
}

// Parse extracts tournament summaries from a results-archive page. rootURL is
// the site root used to absolutize relative results links.
func (e *CalendarExtractor) Parse(html []byte, year int, rootURL string) (CalendarBatch, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return CalendarBatch{}, crerr.Wrap(err, "parse archive document")
	}

	batch := CalendarBatch{RetrievedAt: time.Now().UTC()}
	doc.Find("ul.events > li").Each(func(i int, item *goquery.Selection) {
		summary, err := parseTournamentItem(item, year, rootURL)
		if err != nil {
			batch.Skipped++
			e.logger.Warn("skipping tournament item", "index", i, "year", year, "error", err)
			return
		}
		batch.Tournaments = append(batch.Tournaments, summary)
	})

	return batch, nil
}

func parseTournamentItem(item *goquery.Selection, year int, rootURL string) (tournament.Summary, error) {
	profile := item.Find("a.tournament__profile").First()
	if profile.Length() == 0 {
		return tournament.Summary{}, crerr.New("tournament item has no profile anchor")
	}

	summary := tournament.Summary{
		Year:     year,
		Name:     collapseSpace(profile.Find("span.name").Text()),
		Category: "Other",
	}

	if alt := strings.TrimSpace(item.Find("img.events_banner").AttrOr("alt", "")); alt != "" {
		summary.Category = alt
	}

	if href, ok := profile.Attr("href"); ok {
		summary.TournamentID = tournamentIDFromPath(href)
	}

	summary.City, summary.Country = splitVenue(item.Find("span.venue").Text())
	summary.DateRange = strings.TrimSpace(item.Find("span.Date").Text())

	item.Find("dl.winner").Each(func(_ int, dl *goquery.Selection) {
		label := strings.ToLower(dl.Find("dt").Text())
		switch {
		case strings.Contains(label, "singles"), strings.Contains(label, "team"):
			if winner := collapseSpace(dl.Find("dd").Text()); winner != "" {
				summary.SinglesWinner = &winner
			}
		case strings.Contains(label, "doubles"):
			anchors := dl.Find("dd a")
			if anchors.Length() > 0 {
				anchors.Each(func(_ int, a *goquery.Selection) {
					if name := collapseSpace(a.Text()); name != "" {
						summary.DoublesWinners = append(summary.DoublesWinners, name)
					}
				})
			} else if text := collapseSpace(dl.Find("dd").Text()); text != "" {
				summary.DoublesWinners = append(summary.DoublesWinners, text)
			}
		}
	})

	if href, ok := item.Find("div.non-live-cta a.results").First().Attr("href"); ok {
		resolved := resolveURL(rootURL, href)
		summary.ResultsURL = &resolved
	}

	if err := validate.Struct(summary); err != nil {
		return tournament.Summary{}, crerr.Wrap(err, "invalid tournament summary")
	}

	return summary, nil
}

// tournamentIDFromPath takes the path segment immediately before the trailing
// one, e.g. /en/tournaments/adelaide/8998/overview -> 8998. Too few segments
// yields nil; the record is still kept.
func tournamentIDFromPath(href string) *string {
	parts := strings.Split(strings.Trim(href, "/"), "/")
	if len(parts) <= 2 {
		return nil
	}
	id := parts[len(parts)-2]
	return &id
}

// splitVenue splits "Adelaide, Australia" into city and country. Without a
// comma the whole text is the city and the country defaults to Unknown.
func splitVenue(venue string) (city, country string) {
	venue = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(venue), "|"))
	city, country, found := strings.Cut(venue, ",")
	city = strings.TrimSpace(city)
	if !found || strings.TrimSpace(country) == "" {
		return city, "Unknown"
	}
	return city, strings.TrimSpace(country)
}

func resolveURL(rootURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(rootURL, "/") + href
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
