package document

import (
	"bufio"
	"context"
	"errors"
	"time"

	"github.com/CANDRY15/flashprint/services/interstitial"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/CANDRY15/flashprint/utils/sse"
	"github.com/gofiber/fiber/v2"
)

// streamTick is how often the countdown is pushed
const streamTick = time.Second

// StreamInterstitial pushes the countdown of a ticket as server-sent events:
// one "countdown" per tick, then "ready" once it can be dismissed. The
// ticket is never consumed here.
// GET /api/v1/interstitials/:ticket/stream
func (h *DocumentHandler) StreamInterstitial(c *fiber.Ctx) error {
	id := c.Params("ticket")
	state, err := h.gate.State(c.Context(), id)
	if errors.Is(err, interstitial.ErrTicketGone) {
		return response.Gone(c, "Cette annonce a expiré")
	}
	if err != nil {
		h.log.Error("interstitial state failed", "ticket", id, "error", err)
		return response.InternalServerError(c, "Failed to load countdown")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The fiber context is not valid inside the stream writer
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()

		ticker := time.NewTicker(streamTick)
		defer ticker.Stop()

		for {
			if state.Dismissible {
				_ = sse.Send(w, sse.Event{Event: "ready", ID: state.Ticket, Data: state})
				return
			}
			if err := sse.Send(w, sse.Event{Event: "countdown", ID: state.Ticket, Data: state}); err != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			next, err := h.gate.State(ctx, id)
			if errors.Is(err, interstitial.ErrTicketGone) {
				_ = sse.SendError(w, "GONE", "Cette annonce a expiré")
				return
			}
			if err != nil {
				h.log.Warn("interstitial stream stopped", "ticket", id, "error", err)
				_ = sse.SendError(w, "INTERNAL_ERROR", "Failed to load countdown")
				return
			}
			state = next
		}
	})
	return nil
}
