package location

import (
	"encoding/json"

	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/geo"
)

// ownTracksMessage is the subset of the OwnTracks JSON format we read.
type ownTracksMessage struct {
	Type      string   `json:"_type"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
	Timestamp int64    `json:"tst,omitempty"`
	Accuracy  float64  `json:"acc,omitempty"`
}

// ownTracksCommand asks a device to publish its position right away.
type ownTracksCommand struct {
	Type   string `json:"_type"`
	Action string `json:"action"`
}

var reportLocation = ownTracksCommand{Type: "cmd", Action: "reportLocation"}

// parseOwnTracks decodes a location payload. ok is false for well-formed
// messages of other types (waypoints, transitions, lwt), which are ignored.
func parseOwnTracks(payload []byte) (coord geo.Coordinate, ok bool, err error) {
	var msg ownTracksMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return geo.Coordinate{}, false, ferrors.WrapError(err, ferrors.CategoryLocation, "malformed location payload").
			NextCycle().
			Build()
	}
	if msg.Type != "location" {
		return geo.Coordinate{}, false, nil
	}
	if msg.Latitude == nil || msg.Longitude == nil {
		return geo.Coordinate{}, false, ferrors.LocationError("location payload without coordinates").Build()
	}
	coord = geo.Coordinate{Latitude: *msg.Latitude, Longitude: *msg.Longitude}
	if !coord.Valid() {
		return geo.Coordinate{}, false, ferrors.LocationError("location payload out of range").
			WithContext("coordinate", coord.String()).
			Build()
	}
	return coord, true, nil
}
