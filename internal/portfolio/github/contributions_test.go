package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calendarResponse = `{
  "data": {
    "user": {
      "contributionsCollection": {
        "contributionCalendar": {
          "totalContributions": 9,
          "weeks": [
            {"contributionDays": [
              {"date": "2026-01-04", "contributionCount": 0, "contributionLevel": "NONE"},
              {"date": "2026-01-05", "contributionCount": 1, "contributionLevel": "FIRST_QUARTILE"}
            ]},
            {"contributionDays": [
              {"date": "2026-01-11", "contributionCount": 3, "contributionLevel": "THIRD_QUARTILE"},
              {"date": "2026-01-12", "contributionCount": 5, "contributionLevel": "FOURTH_QUARTILE"}
            ]}
          ]
        }
      }
    }
  }
}`

func TestParseContributionCalendar(t *testing.T) {
	cal, err := ParseContributionCalendar([]byte(calendarResponse))
	require.NoError(t, err)
	assert.Equal(t, 9, cal.Total)
	assert.Equal(t, []ContributionDay{
		{Date: "2026-01-04", Count: 0, Level: 0},
		{Date: "2026-01-05", Count: 1, Level: 1},
		{Date: "2026-01-11", Count: 3, Level: 3},
		{Date: "2026-01-12", Count: 5, Level: 4},
	}, cal.Days)
}

func TestParseContributionCalendarErrors(t *testing.T) {
	_, err := ParseContributionCalendar([]byte(`{"data":{"user":null},"errors":[{"message":"Could not resolve to a User"}]}`))
	assert.ErrorContains(t, err, "Could not resolve to a User")

	_, err = ParseContributionCalendar([]byte(`{"data":{"user":null}}`))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestQuartileLevel(t *testing.T) {
	cases := map[string]int{
		"":                0,
		"NONE":            0,
		"FIRST_QUARTILE":  1,
		"SECOND_QUARTILE": 2,
		"THIRD_QUARTILE":  3,
		"FOURTH_QUARTILE": 4,
	}
	for given, expected := range cases {
		assert.Equal(t, expected, QuartileLevel(given), given)
	}
}

func TestGetContributionCalendar(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/graphql", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"login":"octocat"`)
		fmt.Fprint(w, calendarResponse)
	}, WithToken("secret"))

	cal, err := c.GetContributionCalendar(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Len(t, cal.Days, 4)
}
