package extract

import (
	"bytes"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"

	"github.com/courtsight/atp-ingest/internal/domain/match"
	"github.com/courtsight/atp-ingest/internal/platform/logging"
)

var bracketRe = regexp.MustCompile(`\([^)]*\)`)

// ResultsBatch is the result of parsing one tournament results page. Matches
// keep document order.
type ResultsBatch struct {
	Matches     []match.Record
	Skipped     int
	RetrievedAt time.Time
}

// ResultsContext stamps every extracted match with its tournament identity.
type ResultsContext struct {
	Year           int
	TournamentName string
	TournamentID   string
	RootURL        string
}

type MatchExtractor struct {
	logger *logging.Logger
}

func NewMatchExtractor(logger *logging.Logger) *MatchExtractor {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchExtractor{logger: logger}
}

// Parse extracts match records from a tournament results page. Each match
// container carries its own round heading.
func (e *MatchExtractor) Parse(html []byte, rctx ResultsContext) (ResultsBatch, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ResultsBatch{}, crerr.Wrap(err, "parse results document")
	}

	batch := ResultsBatch{RetrievedAt: time.Now().UTC()}
	doc.Find("div.atp_accordion-item").Each(func(_ int, day *goquery.Selection) {
		day.Find("div.match").Each(func(i int, container *goquery.Selection) {
			record, err := parseMatch(container, rctx)
			if err != nil {
				batch.Skipped++
				e.logger.Warn("skipping match",
					"index", i,
					"tournament", rctx.TournamentName,
					"error", err,
				)
				return
			}
			batch.Matches = append(batch.Matches, record)
		})
	})

	return batch, nil
}

func parseMatch(container *goquery.Selection, rctx ResultsContext) (match.Record, error) {
	record := match.Record{
		Round:          canonicalRound(container.Find("strong").First().Text()),
		Year:           rctx.Year,
		TournamentName: rctx.TournamentName,
		TournamentID:   rctx.TournamentID,
	}

	record.StatsURL, record.MatchID = statsLink(container, rctx.RootURL)
	record.Score = parseScore(container)

	blocks := container.Find("div.name")
	sides, err := parsePlayerBlocks(blocks)
	if err != nil {
		return match.Record{}, err
	}

	record.Player1Name = sides[0].name
	record.Player1ID = sides[0].id
	record.Player1Seed = sides[0].seed
	record.Player1Nation = sides[0].nation
	record.Player2Name = sides[1].name
	record.Player2ID = sides[1].id
	record.Player2Seed = sides[1].seed
	record.Player2Nation = sides[1].nation

	if err := validate.Struct(record); err != nil {
		return match.Record{}, crerr.Wrap(err, "invalid match record")
	}

	return record, nil
}

// canonicalRound turns a raw match heading into a round name: the text before
// the first " - ", hyphens removed, each word title-cased. Headings that are
// empty before the separator become "Unknown Round".
func canonicalRound(raw string) string {
	head, _, _ := strings.Cut(raw, " - ")
	head = strings.ReplaceAll(head, "-", "")
	if strings.TrimSpace(head) == "" {
		return "Unknown Round"
	}

	words := strings.Fields(head)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// statsLink finds the Match Stats call-to-action. The match id is the final
// path segment of its URL; both default to empty when absent.
func statsLink(container *goquery.Selection, rootURL string) (statsURL, matchID string) {
	container.Find("div.match-cta a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := collapseSpace(a.Text())
		if !strings.Contains(text, "Match Stats") && !strings.Contains(text, "Stats") {
			return true
		}
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		statsURL = resolveURL(rootURL, href)
		parts := strings.Split(strings.TrimRight(statsURL, "/"), "/")
		matchID = parts[len(parts)-1]
		return false
	})
	return statsURL, matchID
}

// parseScore combines both sides' per-set score items. Each score-item holds
// one span (game score) or two (game score + tie-break, rendered game(tb)).
// Per set the two sides' tokens are concatenated and every parenthesized
// fragment is moved to the end of the combined token, so "6(4)" + "4" ends
// up as "64(4)". Fewer than two sides (walkovers, in-progress pages) yields
// an empty score; the record is still kept.
func parseScore(container *goquery.Selection) string {
	var sides [][]string
	container.Find("div.scores").Each(func(_ int, side *goquery.Selection) {
		var tokens []string
		side.Find("div.score-item").Each(func(_ int, item *goquery.Selection) {
			var spans []string
			item.Find("span").Each(func(_ int, span *goquery.Selection) {
				if text := strings.TrimSpace(span.Text()); text != "" {
					spans = append(spans, text)
				}
			})
			switch len(spans) {
			case 0:
			case 1:
				tokens = append(tokens, spans[0])
			default:
				tokens = append(tokens, spans[0]+"("+spans[1]+")")
			}
		})
		sides = append(sides, tokens)
	})

	if len(sides) < 2 {
		return ""
	}

	sets := len(sides[0])
	if len(sides[1]) < sets {
		sets = len(sides[1])
	}

	tokens := make([]string, 0, sets)
	for i := 0; i < sets; i++ {
		tokens = append(tokens, moveBracketedParts(sides[0][i]+sides[1][i]))
	}
	return strings.Join(tokens, " ")
}

// moveBracketedParts extracts every "(...)" group from a combined set token
// and re-appends the groups, in order, after the remaining text.
func moveBracketedParts(token string) string {
	brackets := bracketRe.FindAllString(token, -1)
	if len(brackets) == 0 {
		return token
	}
	return bracketRe.ReplaceAllString(token, "") + strings.Join(brackets, "")
}

type playerSide struct {
	name   string
	id     string
	seed   string
	nation string
}

// parsePlayerBlocks maps div.name blocks to the two sides of a match: exactly
// 2 blocks is singles, exactly 4 is doubles with partners comma-joined per
// side. Any other count rejects the match.
func parsePlayerBlocks(blocks *goquery.Selection) ([2]playerSide, error) {
	var players []playerSide
	blocks.Each(func(_ int, block *goquery.Selection) {
		players = append(players, parsePlayerBlock(block))
	})

	switch len(players) {
	case 2:
		return [2]playerSide{players[0], players[1]}, nil
	case 4:
		return [2]playerSide{
			joinPartners(players[0], players[1]),
			joinPartners(players[2], players[3]),
		}, nil
	default:
		return [2]playerSide{}, crerr.Newf("expected 2 or 4 player blocks, found %d", len(players))
	}
}

func parsePlayerBlock(block *goquery.Selection) playerSide {
	player := playerSide{nation: "-"}

	nameNode := block.Find("a").First()
	if nameNode.Length() == 0 {
		nameNode = block.Find("p").First()
	}
	player.name = collapseSpace(ownText(nameNode))

	if href, ok := block.Find("a").First().Attr("href"); ok {
		parts := strings.Split(href, "/")
		if len(parts) >= 2 {
			player.id = parts[len(parts)-2]
		}
	}

	player.seed = strings.Trim(strings.TrimSpace(block.Find("span").First().Text()), "()")

	use := block.Find("svg use").First()
	ref, ok := use.Attr("href")
	if !ok {
		ref, ok = use.Attr("xlink:href")
	}
	if ok {
		if _, fragment, found := strings.Cut(ref, "#"); found && fragment != "" {
			player.nation = strings.TrimPrefix(fragment, "flag-")
		}
	}

	return player
}

// ownText collects a node's direct text children, leaving out nested elements
// such as a seed span sitting inside the profile anchor.
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#text" {
			b.WriteString(child.Text())
		}
	})
	return b.String()
}

func joinPartners(a, b playerSide) playerSide {
	return playerSide{
		name:   a.name + ", " + b.name,
		id:     a.id + ", " + b.id,
		seed:   joinNonEmpty(a.seed, b.seed),
		nation: a.nation + ", " + b.nation,
	}
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + ", " + b
}
