package contract

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name  string
		err   error
		kind  string
		fatal bool
	}{
		{"nil", nil, "", false},
		{"parse", ParseFailure("bad date %q", "-"), "parse failure", false},
		{"lookup", LookupMiss("no venue for %s", "Austin FC"), "lookup miss", false},
		{"fetch", FetchFailure(cause, "fixtures %s", "2023"), "fetch failure", false},
		{"fatal wrapped", FatalConfig(cause, "open venues"), "fatal config", true},
		{"fatal new", FatalConfigf("overlap for %s", "LA Galaxy"), "fatal config", true},
		{"plain", cause, "error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestFetchFailureKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := FetchFailure(cause, "match log")
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrFetchFailure))
	assert.Contains(t, err.Error(), "match log")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMarkedErrorSurvivesWrapping(t *testing.T) {
	err := errors.Wrap(LookupMiss("team %s", "Unknown FC"), "resolve fixture")
	assert.True(t, errors.Is(err, ErrLookupMiss))
	assert.Equal(t, "lookup miss", KindOf(err))
}
