package lastfm

import (
	"errors"
	"fmt"
)

// ChartKind selects which weekly chart is requested.
type ChartKind string

// Supported chart kinds.
const (
	KindArtist ChartKind = "artist"
	KindAlbum  ChartKind = "album"
	KindTrack  ChartKind = "track"
)

// DefaultKind is used when no kind is given.
const DefaultKind = KindArtist

// ErrUnknownChartKind is returned for kinds other than artist, album and track.
var ErrUnknownChartKind = errors.New("unrecognized chart type")

var kindLabels = map[ChartKind]string{
	KindAlbum:  "Albums",
	KindArtist: "Artists",
	KindTrack:  "Tracks",
}

// Kinds returns every supported chart kind.
func Kinds() []ChartKind {
	return []ChartKind{KindAlbum, KindArtist, KindTrack}
}

// ParseKind validates a chart kind.
func ParseKind(s string) (ChartKind, error) {
	k := ChartKind(s)
	if _, ok := kindLabels[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChartKind, s)
	}

	return k, nil
}

// Label returns the plural display name.
func (k ChartKind) Label() string {
	return kindLabels[k]
}

// String implements fmt.Stringer.
func (k ChartKind) String() string {
	return string(k)
}

func (k ChartKind) method() string {
	return "user.getweekly" + string(k) + "chart"
}

func (k ChartKind) rootKey() string {
	return "weekly" + string(k) + "chart"
}

func (k ChartKind) listKey() string {
	return string(k)
}
