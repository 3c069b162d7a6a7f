package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mediconnect/realtime/internal/core"
)

// push encodes an event and hands it to the connection. Sends are
// non-blocking; a full or closed connection drops the frame.
func push(conn core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Msg("encode event")
		return
	}
	_ = conn.TrySend(core.Frame(b))
}
