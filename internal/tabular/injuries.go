package tabular

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// InjuryHeader is the column order of injury record files.
var InjuryHeader = []string{
	"player_name",
	"player_url",
	"position",
	"team",
	"season",
	"injury_type",
	"injury_date",
	"return_date",
	"days_out",
	"games_missed",
}

// ReadInjuries loads the injury records at path in file order.
func ReadInjuries(path string) ([]schema.InjuryEvent, error) {
	rows, err := readFile(path, "player_name", "team")
	if err != nil {
		return nil, err
	}
	return injuriesFromRows(rows), nil
}

// ParseInjuries reads injury records from r.
func ParseInjuries(r io.Reader) ([]schema.InjuryEvent, error) {
	rows, err := readRows(r, "player_name", "team")
	if err != nil {
		return nil, err
	}
	return injuriesFromRows(rows), nil
}

func injuriesFromRows(rows []row) []schema.InjuryEvent {
	events := make([]schema.InjuryEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, injuryFromRow(r))
	}
	return events
}

func injuryFromRow(r row) schema.InjuryEvent {
	return schema.InjuryEvent{
		PlayerName:  r.get("player_name"),
		PlayerURL:   r.get("player_url"),
		Position:    r.get("position"),
		Team:        r.get("team"),
		Season:      r.get("season"),
		InjuryType:  r.get("injury_type"),
		InjuryDate:  r.get("injury_date"),
		ReturnDate:  r.get("return_date"),
		DaysOut:     r.optInt("days_out"),
		GamesMissed: r.optInt("games_missed"),
	}
}

// ValidateInjury checks the identity fields of an event. Failures are
// ParseFailure: the record is skipped, the batch continues.
func ValidateInjury(event schema.InjuryEvent) error {
	if err := validate.Struct(event); err != nil {
		return errors.Mark(errors.Wrapf(err, "invalid injury record for %q", event.PlayerName), contract.ErrParseFailure)
	}
	return nil
}

func injuryFields(e schema.InjuryEvent) []string {
	return []string{
		e.PlayerName,                // player_name
		e.PlayerURL,                 // player_url
		e.Position,                  // position
		e.Team,                      // team
		e.Season,                    // season
		e.InjuryType,                // injury_type
		e.InjuryDate,                // injury_date
		e.ReturnDate,                // return_date
		formatOptInt(e.DaysOut),     // days_out
		formatOptInt(e.GamesMissed), // games_missed
	}
}

// WriteInjuries writes events to w with a header row.
func WriteInjuries(w io.Writer, events []schema.InjuryEvent) error {
	cw := newCSVWriter(w)
	if err := cw.Write(InjuryHeader); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for _, e := range events {
		if err := cw.Write(injuryFields(e)); err != nil {
			return errors.Wrap(err, "failed to write injury record")
		}
	}
	cw.Flush()
	return cw.Error()
}
