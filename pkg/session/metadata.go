package session

import "encoding/json"

// ParticipantMetadata is the optional JSON blob a client attaches when
// joining, used to pre-register the player before the show starts.
type ParticipantMetadata struct {
	PlayerName string `json:"player_name"`
}

// ParseParticipantMetadata decodes the metadata blob. Empty input is
// not an error; malformed input returns the zero value and the decode
// error so callers can log and carry on without a name.
func ParseParticipantMetadata(raw string) (ParticipantMetadata, error) {
	var meta ParticipantMetadata
	if raw == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return ParticipantMetadata{}, err
	}
	return meta, nil
}
