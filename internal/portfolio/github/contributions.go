package github

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

const contributionsQuery = `query($login: String!) {
  user(login: $login) {
    contributionsCollection {
      contributionCalendar {
        totalContributions
        weeks {
          contributionDays {
            date
            contributionCount
            contributionLevel
          }
        }
      }
    }
  }
}`

// ContributionDay is one day of the contribution calendar.
type ContributionDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Level int    `json:"level"`
}

// ContributionCalendar is the flattened calendar of one account.
type ContributionCalendar struct {
	Total int
	Days  []ContributionDay
}

// QuartileLevel maps a GraphQL ContributionLevel onto 0..4.
func QuartileLevel(level string) int {
	switch level {
	case "FIRST_QUARTILE":
		return 1
	case "SECOND_QUARTILE":
		return 2
	case "THIRD_QUARTILE":
		return 3
	case "FOURTH_QUARTILE":
		return 4
	default:
		return 0
	}
}

// GetContributionCalendar fetches the contribution calendar of login through
// the GraphQL API. It requires an authenticated client.
func (c *Client) GetContributionCalendar(ctx context.Context, login string) (*ContributionCalendar, error) {
	var raw json.RawMessage
	if _, err := c.Query(ctx, contributionsQuery, map[string]any{"login": login}, &raw); err != nil {
		return nil, fmt.Errorf("failed to query contributions of %s: %w", login, err)
	}
	return ParseContributionCalendar(raw)
}

// ParseContributionCalendar flattens the weeks of a contributionCalendar
// GraphQL response into days. The total is the sum of the day counts.
func ParseContributionCalendar(raw []byte) (*ContributionCalendar, error) {
	if errs := gjson.GetBytes(raw, "errors"); errs.IsArray() && len(errs.Array()) > 0 {
		return nil, fmt.Errorf("graphql: %s", errs.Get("0.message").String())
	}
	calendar := gjson.GetBytes(raw, "data.user.contributionsCollection.contributionCalendar")
	if !calendar.Exists() || calendar.Type == gjson.Null {
		return nil, fmt.Errorf("graphql: %w: contribution calendar missing from response", ErrDecode)
	}

	out := &ContributionCalendar{Days: []ContributionDay{}}
	calendar.Get("weeks").ForEach(func(_, week gjson.Result) bool {
		week.Get("contributionDays").ForEach(func(_, day gjson.Result) bool {
			d := ContributionDay{
				Date:  day.Get("date").String(),
				Count: int(day.Get("contributionCount").Int()),
				Level: QuartileLevel(day.Get("contributionLevel").String()),
			}
			out.Days = append(out.Days, d)
			out.Total += d.Count
			return true
		})
		return true
	})
	return out, nil
}
