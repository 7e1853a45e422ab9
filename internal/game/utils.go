// internal/game/utils.go
package game

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// EncodeEvent marshals an already projected Event into JSON bytes.
// Logs a warning and returns empty JSON "{}" on marshalling error.
func EncodeEvent(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithField("type", ev.Type).Warnf("failed to marshal event: %v", err)
		return []byte("{}")
	}
	return data
}
