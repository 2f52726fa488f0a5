package transfermarkt

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/huangsam/injuryscope/core/dates"
	"github.com/huangsam/injuryscope/schema"
)

// itemRows selects the striped body rows of the first items table. Rows of
// nested inline tables carry no stripe class and are not matched.
func itemRows(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table.items").First().Find("tr.odd, tr.even")
}

// cells returns the direct td children of a row.
func cells(row *goquery.Selection) *goquery.Selection {
	return row.ChildrenFiltered("td")
}

func cellText(tds *goquery.Selection, i int) string {
	return strings.TrimSpace(tds.Eq(i).Text())
}

// ParseFixtures reads a club fixture list. Home and away names come from the
// club link titles so they match the canonical spelling.
func ParseFixtures(doc *goquery.Document, team string) []schema.Fixture {
	var fixtures []schema.Fixture
	itemRows(doc).Each(func(_ int, row *goquery.Selection) {
		tds := cells(row)
		if tds.Length() < 8 {
			return
		}
		date, ok := dates.Normalize(cellText(tds, 1))
		if !ok {
			return
		}
		home := clubTitle(tds.Eq(4))
		away := clubTitle(tds.Eq(6))
		if home == "" || away == "" {
			return
		}

		f := schema.Fixture{Date: date, HomeTeam: home, AwayTeam: away}
		f.IsHomeForSubjectTeam = strings.EqualFold(home, team)
		if f.IsHomeForSubjectTeam {
			f.Opponent = away
		} else {
			f.Opponent = home
		}
		fixtures = append(fixtures, f)
	})
	return fixtures
}

// clubTitle returns the title of the first titled link in the cell.
func clubTitle(cell *goquery.Selection) string {
	var title string
	cell.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if t, ok := a.Attr("title"); ok && strings.TrimSpace(t) != "" {
			title = strings.TrimSpace(t)
			return false
		}
		return true
	})
	return title
}

// ParseMatchLog reads the detailed per-match performance page.
func ParseMatchLog(doc *goquery.Document) []schema.MatchObservation {
	var matches []schema.MatchObservation
	itemRows(doc).Each(func(_ int, row *goquery.Selection) {
		tds := cells(row)
		if tds.Length() < 10 {
			return
		}
		date, ok := dates.Normalize(cellText(tds, 2))
		if !ok {
			return
		}

		lineup := tds.Eq(3)
		title, _ := lineup.Attr("title")
		started := strings.Contains(title, "Startaufstellung") || lineup.Find("span.hauptposition").Length() > 0

		obs := schema.MatchObservation{
			Date:    date,
			Started: started,
			Minutes: dates.IntOrZero(cellText(tds, 5)),
			Goals:   dates.IntOrZero(cellText(tds, 6)),
			Assists: dates.IntOrZero(cellText(tds, 7)),
		}
		if tds.Eq(8).Find("div.yellow-card").Length() > 0 {
			obs.YellowCards = 1
		}
		if tds.Eq(9).Find("div.red-card").Length() > 0 {
			obs.RedCards = 1
		}
		matches = append(matches, obs)
	})
	return matches
}

// ParseSeasonTotals sums the per-competition rows of the performance page.
func ParseSeasonTotals(doc *goquery.Document) schema.SeasonTotals {
	var totals schema.SeasonTotals
	itemRows(doc).Each(func(_ int, row *goquery.Selection) {
		tds := cells(row)
		if tds.Length() < 10 {
			return
		}
		totals.Games += dates.IntOrZero(cellText(tds, 3))
		totals.Minutes += dates.IntOrZero(cellText(tds, 5))
		totals.Goals += dates.IntOrZero(cellText(tds, 6))
		totals.Assists += dates.IntOrZero(cellText(tds, 7))
	})
	return totals
}

// ParseTeams reads the club list of the league page. URLs are left as found.
func ParseTeams(doc *goquery.Document) []schema.TeamRef {
	var teams []schema.TeamRef
	seen := make(map[string]struct{})
	itemRows(doc).Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td.hauptlink a").First()
		href, ok := link.Attr("href")
		name := strings.TrimSpace(link.Text())
		if !ok || name == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		teams = append(teams, schema.TeamRef{Name: name, URL: href})
	})
	return teams
}

// ParseSquad reads the detailed squad page. URLs are left as found.
func ParseSquad(doc *goquery.Document) []schema.PlayerRef {
	var players []schema.PlayerRef
	itemRows(doc).Each(func(_ int, row *goquery.Selection) {
		tds := cells(row)
		if tds.Length() < 2 {
			return
		}

		first := tds.Eq(0)
		position, _ := first.Attr("title")
		position = strings.TrimSpace(position)
		if position == "" {
			position = strings.TrimSpace(first.Text())
		}
		if position == "" {
			position = "Unknown"
		}

		row.Find("td.hauptlink a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if !strings.Contains(href, "/profil/spieler/") {
				return true
			}
			players = append(players, schema.PlayerRef{
				Name:     strings.TrimSpace(a.Text()),
				URL:      href,
				Position: position,
			})
			return false
		})
	})
	return players
}

// ParseInjuries reads an injury history page. Every row is kept; season
// filtering is left to the caller.
func ParseInjuries(doc *goquery.Document, player schema.PlayerRef, team string) []schema.InjuryEvent {
	var events []schema.InjuryEvent
	itemRows(doc).Each(func(_ int, row *goquery.Selection) {
		tds := cells(row)
		if tds.Length() < 5 {
			return
		}
		e := schema.InjuryEvent{
			PlayerName: player.Name,
			PlayerURL:  player.URL,
			Position:   player.Position,
			Team:       team,
			Season:     cellText(tds, 0),
			InjuryType: cellText(tds, 1),
			InjuryDate: cellText(tds, 2),
			ReturnDate: cellText(tds, 3),
		}
		if n, ok := dates.LeadingInt(cellText(tds, 4)); ok {
			e.DaysOut = &n
		}
		if tds.Length() > 5 {
			if n, ok := dates.LeadingInt(cellText(tds, 5)); ok {
				e.GamesMissed = &n
			}
		}
		events = append(events, e)
	})
	return events
}
