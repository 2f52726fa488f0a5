// Package transfermarkt fetches and parses the public Transfermarkt pages
// injuryscope reads: league tables, squads, injury histories, fixture lists,
// match logs and season totals.
package transfermarkt

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/logging"
	"github.com/huangsam/injuryscope/internal/metrics"
	"github.com/huangsam/injuryscope/schema"
)

// DefaultUserAgent is sent with every request; the site rejects obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// leaguePath is the MLS competition page.
const leaguePath = "/major-league-soccer/startseite/wettbewerb/MLS1"

// Options configure a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	Delay     time.Duration // minimum spacing between requests
	Timeout   time.Duration
	HTTP      *http.Client // optional; overrides Timeout
}

// Client is a paced, non-retrying page fetcher.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	teams     contract.TeamLookup
	recorder  *metrics.Recorder
	logger    *logging.Logger
}

var (
	_ contract.PageFetcher   = &Client{} // Compile-time check
	_ contract.RosterFetcher = &Client{} // Compile-time check
)

// NewClient creates a Client. teams resolves team names to site ids and may
// be nil for commands that only walk league pages.
func NewClient(opts Options, teams contract.TeamLookup, recorder *metrics.Recorder, logger *logging.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = contract.DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = contract.DefaultFetchTimeout
	}
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		http:      httpClient,
		limiter:   rate.NewLimiter(limit, 1),
		teams:     teams,
		recorder:  recorder,
		logger:    logger.With("component", "transfermarkt"),
	}
}

// absolute turns a site-relative link into a full URL.
func (c *Client) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return c.baseURL + href
}

// get waits for the limiter, fetches url and parses the body. Every failure
// is FetchFailure and nothing is retried.
func (c *Client) get(ctx context.Context, kind, url string) (*goquery.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, contract.FetchFailure(err, "waiting to fetch %s", url)
	}

	start := time.Now()
	doc, err := c.do(ctx, url)
	elapsed := time.Since(start)
	if err != nil {
		c.recorder.Fetch(kind, metrics.ResultError, elapsed)
		c.logger.Warn("fetch failed", "kind", kind, "url", url, "error", err)
		return nil, err
	}
	c.recorder.Fetch(kind, metrics.ResultOK, elapsed)
	c.logger.Debug("fetched page", "kind", kind, "url", url, "elapsed", elapsed)
	return doc, nil
}

func (c *Client) do(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, contract.FetchFailure(err, "building request for %s", url)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, contract.FetchFailure(err, "requesting %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, contract.FetchFailure(nil, "%s returned HTTP %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, contract.FetchFailure(err, "reading %s", url)
	}
	return doc, nil
}

// FetchFixtures returns the fixture list of team for the season starting in
// season.
func (c *Client) FetchFixtures(ctx context.Context, team, season string) ([]schema.Fixture, error) {
	url, err := c.fixturesURL(team, season)
	if err != nil {
		return nil, err
	}
	doc, err := c.get(ctx, metrics.KindFixtures, url)
	if err != nil {
		return nil, err
	}
	subject := team
	if c.teams != nil {
		subject = c.teams.Canonical(team)
	}
	return ParseFixtures(doc, subject), nil
}

// FetchMatchLog returns the per-match lines of a player in a season.
func (c *Client) FetchMatchLog(ctx context.Context, playerURL, season string) ([]schema.MatchObservation, error) {
	doc, err := c.get(ctx, metrics.KindMatchLog, c.absolute(performanceURL(playerURL, season, true)))
	if err != nil {
		return nil, err
	}
	return ParseMatchLog(doc), nil
}

// FetchSeasonTotals returns the season totals of a player summed over all
// competitions.
func (c *Client) FetchSeasonTotals(ctx context.Context, playerURL, season string) (schema.SeasonTotals, error) {
	doc, err := c.get(ctx, metrics.KindTotals, c.absolute(performanceURL(playerURL, season, false)))
	if err != nil {
		return schema.SeasonTotals{}, err
	}
	return ParseSeasonTotals(doc), nil
}

// FetchTeams lists the clubs of the league in a season.
func (c *Client) FetchTeams(ctx context.Context, season string) ([]schema.TeamRef, error) {
	url := c.baseURL + leaguePath + "/plus/?saison_id=" + season
	doc, err := c.get(ctx, metrics.KindTeams, url)
	if err != nil {
		return nil, err
	}
	teams := ParseTeams(doc)
	for i := range teams {
		teams[i].URL = c.absolute(teams[i].URL)
	}
	return teams, nil
}

// FetchSquad lists the players of team in a season.
func (c *Client) FetchSquad(ctx context.Context, team schema.TeamRef, season string) ([]schema.PlayerRef, error) {
	doc, err := c.get(ctx, metrics.KindSquad, c.absolute(squadURL(team.URL, season)))
	if err != nil {
		return nil, err
	}
	players := ParseSquad(doc)
	for i := range players {
		players[i].URL = c.absolute(players[i].URL)
	}
	return players, nil
}

// FetchInjuries returns the full injury history of player, attributed to team.
func (c *Client) FetchInjuries(ctx context.Context, player schema.PlayerRef, team string) ([]schema.InjuryEvent, error) {
	doc, err := c.get(ctx, metrics.KindInjuries, c.absolute(injuriesURL(player.URL)))
	if err != nil {
		return nil, err
	}
	return ParseInjuries(doc, player, team), nil
}

func (c *Client) fixturesURL(team, season string) (string, error) {
	if c.teams == nil {
		return "", contract.LookupMiss("no team id table loaded for %q", team)
	}
	id, ok := c.teams.ID(team)
	if !ok {
		return "", contract.LookupMiss("no team id for %q", team)
	}
	return c.baseURL + "/" + teamSlug(c.teams.Canonical(team)) + "/spielplan/verein/" + id + "/saison_id/" + season, nil
}

// teamSlug lowercases name and joins its words with dashes.
func teamSlug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// performanceURL maps a profile link to its performance page. The detailed
// variant lists every match instead of one row per competition.
func performanceURL(playerURL, season string, detailed bool) string {
	url := strings.Replace(playerURL, "/profil/", "/leistungsdatendetails/", 1) + "/saison/" + season
	if detailed {
		url += "/plus/1"
	}
	return url
}

// squadURL maps a club home page to its detailed squad page.
func squadURL(teamURL, season string) string {
	return strings.Replace(teamURL, "/startseite/", "/kader/", 1) + "/saison_id/" + season + "/plus/1"
}

// injuriesURL maps a profile link to the injury history page.
func injuriesURL(playerURL string) string {
	return strings.Replace(playerURL, "/profil/", "/verletzungen/", 1)
}

