package tabular

import (
	"strconv"

	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/schema"
)

// ReadVenues loads the venue reference table. Every row must be valid; the
// overlap check happens when the table is indexed.
func ReadVenues(path string) ([]schema.VenueRecord, error) {
	rows, err := readFile(path, "team", "stadium_name", "start_year", "end_year")
	if err != nil {
		return nil, err
	}

	venues := make([]schema.VenueRecord, 0, len(rows))
	for _, r := range rows {
		altitude, err := intCell(r, "altitude_ft", true)
		if err != nil {
			return nil, contract.FatalConfig(err, "%s line %d", path, r.line)
		}
		start, err := intCell(r, "start_year", false)
		if err != nil {
			return nil, contract.FatalConfig(err, "%s line %d", path, r.line)
		}
		end, err := intCell(r, "end_year", false)
		if err != nil {
			return nil, contract.FatalConfig(err, "%s line %d", path, r.line)
		}

		v := schema.VenueRecord{
			Team:        r.get("team"),
			StadiumName: r.get("stadium_name"),
			SurfaceType: r.get("surface_type"),
			City:        r.get("city"),
			State:       r.get("state"),
			AltitudeFt:  altitude,
			ClimateZone: r.get("climate_zone"),
			StartYear:   start,
			EndYear:     end,
		}
		if err := validate.Struct(v); err != nil {
			return nil, contract.FatalConfig(err, "%s line %d", path, r.line)
		}
		venues = append(venues, v)
	}
	return venues, nil
}

// ReadBenchmarks loads the recovery-time benchmark table.
func ReadBenchmarks(path string) ([]schema.BenchmarkRecord, error) {
	rows, err := readFile(path, "injury_type", "median_recovery_days")
	if err != nil {
		return nil, err
	}

	out := make([]schema.BenchmarkRecord, 0, len(rows))
	for _, r := range rows {
		median, err := floatCell(r, "median_recovery_days")
		if err != nil {
			return nil, contract.FatalConfig(err, "%s line %d", path, r.line)
		}
		mean, err := floatCell(r, "mean_recovery_days")
		if err != nil {
			return nil, contract.FatalConfig(err, "%s line %d", path, r.line)
		}

		b := schema.BenchmarkRecord{
			InjuryType:         r.get("injury_type"),
			TimePeriod:         r.get("time_period"),
			MedianRecoveryDays: median,
			MeanRecoveryDays:   mean,
		}
		if err := validate.Struct(b); err != nil {
			return nil, contract.FatalConfig(err, "%s line %d", path, r.line)
		}
		out = append(out, b)
	}
	return out, nil
}

// ReadTeamIDs loads the team identifier table. The canonical column is
// optional and defaults to the team name.
func ReadTeamIDs(path string) ([]schema.TeamID, error) {
	rows, err := readFile(path, "team", "team_id")
	if err != nil {
		return nil, err
	}

	out := make([]schema.TeamID, 0, len(rows))
	for _, r := range rows {
		t := schema.TeamID{
			Team:      r.get("team"),
			ID:        r.get("team_id"),
			Canonical: r.get("canonical"),
		}
		if t.Canonical == "" {
			t.Canonical = t.Team
		}
		if err := validate.Struct(t); err != nil {
			return nil, contract.FatalConfig(err, "%s line %d", path, r.line)
		}
		out = append(out, t)
	}
	return out, nil
}

// intCell parses an integer column. When optional is set a blank cell is 0.
func intCell(r row, column string, optional bool) (int, error) {
	s := r.get(column)
	if s == "" && optional {
		return 0, nil
	}
	if n := r.optInt(column); n != nil {
		return *n, nil
	}
	return 0, contract.ParseFailure("column %s: not a number: %q", column, s)
}

// floatCell parses a float column. A blank cell is 0.
func floatCell(r row, column string) (float64, error) {
	s := r.get(column)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, contract.ParseFailure("column %s: not a number: %q", column, s)
	}
	return f, nil
}
