package handlers

import (
	"encoding/json"
	"log/slog"

	fiberws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/reidmcb/fairway-live/internal/notify"
	"github.com/reidmcb/fairway-live/internal/websocket"
)

// liveInbound is a message from a connected viewer. Joining happens implicitly
// on connect (the competition is in the URL); "leave" detaches without closing
// the socket, and "echo" rebroadcasts a client-originated optimistic event
// through the notifier's dedup so server and client announcements of the same
// shot collapse into one popup.
type liveInbound struct {
	Action string             `json:"action"` // "leave" or "echo"
	Event  *notify.PopupEvent `json:"event,omitempty"`
}

// LiveUpgrade gates the live route: plain HTTP requests get 426, websocket
// upgrade requests continue to the Live handler.
func LiveUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Live returns the websocket handler for GET /live/:competitionId. Each
// connection becomes one hub client: joined to its competition's channel on
// connect, drained by a write pump, and removed when the socket closes.
func Live(hub *websocket.Hub, notifier *notify.Notifier, log *slog.Logger) fiber.Handler {
	return fiberws.New(func(conn *fiberws.Conn) {
		compID, err := uuid.Parse(conn.Params("competitionId"))
		if err != nil {
			_ = conn.Close()
			return
		}

		client := &websocket.Client{
			CompetitionID: compID,
			Send:          make(chan []byte, 64),
		}
		hub.Join(client)
		defer hub.Leave(client)

		// Write pump: everything the hub broadcasts for this competition goes
		// out on the socket. Exits when the hub closes the Send channel.
		go func() {
			for data := range client.Send {
				if err := conn.WriteMessage(fiberws.TextMessage, data); err != nil {
					return
				}
			}
		}()

		// Read loop: runs until the client disconnects.
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var in liveInbound
			if err := json.Unmarshal(data, &in); err != nil {
				log.Warn("unparseable live message", "competition", compID, "err", err)
				continue
			}
			switch in.Action {
			case "leave":
				return
			case "echo":
				if in.Event == nil {
					continue
				}
				ev := *in.Event
				// The competition channel is authoritative from the URL; a
				// client can't publish into someone else's competition.
				ev.CompetitionID = compID
				notifier.EmitClientEvent(ev)
			default:
				log.Warn("unknown live action", "competition", compID, "action", in.Action)
			}
		}
	})
}
