package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/log"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBufferSize   = 16
	streamWriteTimeout = 5 * time.Second
)

// HandleStream upgrades to a websocket and pushes the full state on connect
// and after every change. A client that falls behind skips intermediate
// states and receives the latest one. Cross-origin upgrades are accepted only
// from hosts matching originPatterns.
func HandleStream(game Game, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			log.Error("Failed to accept websocket: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "")

		updates := make(chan *types.GameState, streamBufferSize)
		unsubscribe := game.Subscribe(func(_, next *types.GameState) {
			select {
			case updates <- next:
			default:
				// Listeners must not block the dispatch; drop the oldest.
				select {
				case <-updates:
				default:
				}
				select {
				case updates <- next:
				default:
				}
			}
		})
		defer unsubscribe()

		// The stream is write only; CloseRead handles control frames and
		// cancels ctx when the client goes away.
		ctx := conn.CloseRead(r.Context())

		if err := writeState(ctx, conn, game.State()); err != nil {
			log.Debug("Stream closed: %v", err)
			return
		}
		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case next := <-updates:
				if err := writeState(ctx, conn, next); err != nil {
					log.Debug("Stream closed: %v", err)
					return
				}
			}
		}
	}
}

func writeState(ctx context.Context, conn *websocket.Conn, gameState *types.GameState) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, gameState)
}
