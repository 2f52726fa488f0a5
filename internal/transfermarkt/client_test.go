package transfermarkt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/metrics"
	"github.com/huangsam/injuryscope/schema"
)

// fakeSite serves canned pages by path and records every request.
type fakeSite struct {
	mu       sync.Mutex
	pages    map[string]string
	requests []*http.Request
}

func (f *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.mu.Unlock()

	body, ok := f.pages[r.URL.RequestURI()]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(body))
}

func (f *fakeSite) seen() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

func newTestClient(t *testing.T, pages map[string]string, delay time.Duration) (*Client, *fakeSite, *metrics.Recorder) {
	t.Helper()
	site := &fakeSite{pages: pages}
	server := httptest.NewServer(site)
	t.Cleanup(server.Close)

	teams, err := NewTeamTable([]schema.TeamID{
		{Team: "Real Salt Lake", ID: "6643"},
		{Team: "RSL", ID: "6643", Canonical: "Real Salt Lake"},
	})
	require.NoError(t, err)

	recorder := metrics.NewRecorder("test")
	client := NewClient(Options{BaseURL: server.URL, Delay: delay, Timeout: time.Second}, teams, recorder, nil)
	return client, site, recorder
}

func TestClientFetchFixtures(t *testing.T) {
	client, site, recorder := newTestClient(t, map[string]string{
		"/real-salt-lake/spielplan/verein/6643/saison_id/2023": fixturesHTML,
	}, 0)

	// Aliases resolve to the canonical slug and id
	fixtures, err := client.FetchFixtures(t.Context(), "RSL", "2023")
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	assert.True(t, fixtures[0].IsHomeForSubjectTeam)

	requests := site.seen()
	require.Len(t, requests, 1)
	assert.Equal(t, DefaultUserAgent, requests[0].Header.Get("User-Agent"))
	count, err := testutil.GatherAndCount(recorder.Registry(), "injuryscope_fetch_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClientFetchFixtures_UnknownTeam(t *testing.T) {
	client, site, _ := newTestClient(t, nil, 0)

	_, err := client.FetchFixtures(t.Context(), "Atlantis FC", "2023")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrLookupMiss))
	assert.Empty(t, site.seen(), "no request without a team id")
}

func TestClientHTTPErrorIsFetchFailure(t *testing.T) {
	client, _, recorder := newTestClient(t, nil, 0)

	_, err := client.FetchMatchLog(t.Context(), "/x/profil/spieler/1", "2023")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrFetchFailure))
	assert.False(t, contract.IsFatal(err))
	assert.Contains(t, err.Error(), "404")
	count, err := testutil.GatherAndCount(recorder.Registry(), "injuryscope_fetch_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClientTransportErrorIsFetchFailure(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, nil, nil, nil)

	_, err := client.FetchTeams(t.Context(), "2023")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrFetchFailure))
}

func TestClientPerformancePages(t *testing.T) {
	client, _, _ := newTestClient(t, map[string]string{
		"/a/leistungsdatendetails/spieler/1/saison/2023/plus/1": matchLogHTML,
		"/a/leistungsdatendetails/spieler/1/saison/2023":        totalsHTML,
	}, 0)

	matches, err := client.FetchMatchLog(t.Context(), "/a/profil/spieler/1", "2023")
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	totals, err := client.FetchSeasonTotals(t.Context(), "/a/profil/spieler/1", "2023")
	require.NoError(t, err)
	assert.Equal(t, 32, totals.Games)
}

func TestClientRosterPages(t *testing.T) {
	client, _, _ := newTestClient(t, map[string]string{
		leaguePath + "/plus/?saison_id=2023":                      teamsHTML,
		"/real-salt-lake/kader/verein/6643/saison_id/2023/plus/1": squadHTML,
		"/justen-glad/verletzungen/spieler/2":                     injuriesHTML,
	}, 0)
	ctx := t.Context()

	teams, err := client.FetchTeams(ctx, "2023")
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Contains(t, teams[0].URL, "/real-salt-lake/startseite/verein/6643")
	assert.Contains(t, teams[0].URL, "http://")

	players, err := client.FetchSquad(ctx, teams[0], "2023")
	require.NoError(t, err)
	require.Len(t, players, 3)

	events, err := client.FetchInjuries(ctx, players[1], teams[0].Name)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, players[1].URL, events[0].PlayerURL)
	assert.Equal(t, "Real Salt Lake", events[0].Team)
}

func TestClientPacing(t *testing.T) {
	client, site, _ := newTestClient(t, map[string]string{
		leaguePath + "/plus/?saison_id=2023": teamsHTML,
	}, 50*time.Millisecond)

	start := time.Now()
	for range 3 {
		_, err := client.FetchTeams(t.Context(), "2023")
		require.NoError(t, err)
	}
	// First request is immediate, the next two wait one delay each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Len(t, site.seen(), 3)
}

func TestClientCancelledContext(t *testing.T) {
	client, site, _ := newTestClient(t, nil, time.Hour)
	ctx, cancel := context.WithCancel(t.Context())

	// Consume the initial token so the next call has to wait
	_, _ = client.FetchTeams(ctx, "2023")
	cancel()

	_, err := client.FetchTeams(ctx, "2023")
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrFetchFailure))
	assert.Len(t, site.seen(), 1)
}

func TestTeamTable(t *testing.T) {
	table, err := NewTeamTable([]schema.TeamID{
		{Team: "Real Salt Lake", ID: "6643", Canonical: "Real Salt Lake"},
		{Team: "RSL", ID: "6643", Canonical: "Real Salt Lake"},
		{Team: "LA Galaxy", ID: "1061"},
	})
	require.NoError(t, err)

	id, ok := table.ID("  rsl ")
	assert.True(t, ok)
	assert.Equal(t, "6643", id)
	assert.Equal(t, "Real Salt Lake", table.Canonical("RSL"))
	assert.Equal(t, "LA Galaxy", table.Canonical("la galaxy"))
	assert.Equal(t, "Atlantis FC", table.Canonical("Atlantis FC"))
	_, ok = table.ID("Atlantis FC")
	assert.False(t, ok)
	assert.Equal(t, 3, table.Len())

	var nilTable *TeamTable
	assert.Equal(t, "X", nilTable.Canonical("X"))
}

func TestTeamTable_Conflict(t *testing.T) {
	_, err := NewTeamTable([]schema.TeamID{
		{Team: "RSL", ID: "6643"},
		{Team: "RSL", ID: "9999"},
	})
	require.Error(t, err)
	assert.True(t, contract.IsFatal(err))
}

func TestLoadTeamTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teams.csv")
	require.NoError(t, os.WriteFile(path, []byte("team,team_id,canonical\nRSL,6643,Real Salt Lake\n"), 0o644))

	table, err := LoadTeamTable(path)
	require.NoError(t, err)
	id, ok := table.ID("Real Salt Lake")
	assert.True(t, ok)
	assert.Equal(t, "6643", id)

	_, err = LoadTeamTable(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, contract.IsFatal(err))
}
