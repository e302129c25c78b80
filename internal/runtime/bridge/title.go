package bridge

import (
	"context"
	"time"

	"github.com/luminet/beamline/internal/runtime/interop"
	"github.com/luminet/beamline/internal/runtime/logging"
)

// TitleTimeout bounds how long DeriveTitle waits for the backend.
const TitleTimeout = 10 * time.Second

// DeriveTitle asks the prompt backend to condense free text into a task
// title. The second return is false when the bridge is standalone, the
// backend times out, or the reply is not terminal text; callers fall back to
// a default title.
func (b *Bridge) DeriveTitle(ctx context.Context, description string) (string, bool) {
	if b.State() != StateBridged {
		return "", false
	}

	tx := interop.TitleFromDescription(description)
	// Room for stray stream chunks ahead of the close; the registry drops
	// responses that find this channel full.
	rx := make(chan interop.PromptRx, 8)
	b.streams.Insert(tx.StreamID, rx)

	ctx, cancel := context.WithTimeout(ctx, TitleTimeout)
	defer cancel()

	if err := b.promptTx.Send(ctx, tx); err != nil {
		b.streams.Remove(tx.StreamID)
		return "", false
	}

	for {
		select {
		case reply := <-rx:
			if !reply.Terminal() {
				// Some backends stream the title before closing; only
				// the close carries the text we return.
				continue
			}
			// A terminal response already removed the registry entry.
			if reply.Close != nil && reply.Close.Text != "" {
				return reply.Close.Text, true
			}
			return "", false

		case <-ctx.Done():
			// The entry comes out of the registry so a late reply
			// resolves as an ordinary correlation miss instead of
			// leaking for the life of the process.
			b.streams.Remove(tx.StreamID)
			b.log.Warn("title derivation timed out", logging.LogFields{
				"stream_id": tx.StreamID,
			})
			return "", false
		}
	}
}
