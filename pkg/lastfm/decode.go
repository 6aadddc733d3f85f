package lastfm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
)

// oneOrMany decodes a JSON array, or a lone object as a one-element slice.
// The service collapses single-entry lists into an object.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = nil

		return nil
	}

	if data[0] == '[' {
		var many []T

		err := json.Unmarshal(data, &many)
		if err != nil {
			return err
		}

		*o = many

		return nil
	}

	var one T

	err := json.Unmarshal(data, &one)
	if err != nil {
		return err
	}

	*o = oneOrMany[T]{one}

	return nil
}

type textRef struct {
	Text string `json:"#text"`
}

type chartEntry struct {
	Name      string   `json:"name"`
	PlayCount string   `json:"playcount"`
	Artist    *textRef `json:"artist,omitempty"`
}

func (e chartEntry) label() string {
	if e.Artist != nil && e.Artist.Text != "" {
		return e.Artist.Text + " - " + e.Name
	}

	return e.Name
}

func decodeWeeklyChart(body []byte, kind ChartKind) ([]rolling.Entry, error) {
	var envelope map[string]map[string]json.RawMessage

	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.rootKey(), err)
	}

	raw, ok := envelope[kind.rootKey()][kind.listKey()]
	if !ok {
		return []rolling.Entry{}, nil
	}

	var list oneOrMany[chartEntry]

	err = json.Unmarshal(raw, &list)
	if err != nil {
		return nil, fmt.Errorf("decode %s entries: %w", kind.rootKey(), err)
	}

	return toEntries(list)
}

// toEntries parses play counts, skipping non-numeric ones and merging repeated
// names into their first position.
func toEntries(list []chartEntry) ([]rolling.Entry, error) {
	entries := make([]rolling.Entry, 0, len(list))
	position := make(map[rolling.ItemID]int, len(list))

	for _, item := range list {
		n, parseErr := strconv.ParseInt(item.PlayCount, 10, 64)
		if parseErr != nil {
			continue
		}

		e, err := rolling.NewEntry(item.label(), n)
		if err != nil {
			return nil, err
		}

		if pos, dup := position[e.Item]; dup {
			entries[pos].Count += e.Count

			continue
		}

		position[e.Item] = len(entries)
		entries = append(entries, e)
	}

	return entries, nil
}

type userEnvelope struct {
	User struct {
		Name       string `json:"name"`
		RealName   string `json:"realname"`
		URL        string `json:"url"`
		Country    string `json:"country"`
		PlayCount  string `json:"playcount"`
		Registered struct {
			Unixtime string `json:"unixtime"`
		} `json:"registered"`
	} `json:"user"`
}

func decodeUserInfo(body []byte) (UserInfo, error) {
	var env userEnvelope

	err := json.Unmarshal(body, &env)
	if err != nil {
		return UserInfo{}, fmt.Errorf("decode user info: %w", err)
	}

	info := UserInfo{
		Name:     env.User.Name,
		RealName: env.User.RealName,
		URL:      env.User.URL,
		Country:  env.User.Country,
	}

	if env.User.PlayCount != "" {
		info.PlayCount, err = strconv.ParseInt(env.User.PlayCount, 10, 64)
		if err != nil {
			return UserInfo{}, fmt.Errorf("decode user play count: %w", err)
		}
	}

	unix, err := strconv.ParseInt(env.User.Registered.Unixtime, 10, 64)
	if err != nil {
		return UserInfo{}, fmt.Errorf("decode registration time: %w", err)
	}

	info.RegisteredAt = time.Unix(unix, 0).UTC()

	return info, nil
}
