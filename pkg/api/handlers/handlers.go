package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/breeding"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/log"
	"github.com/cbodonnell/menagerie/pkg/persistence"
	"github.com/cbodonnell/menagerie/pkg/reducer"
	"github.com/cbodonnell/menagerie/pkg/shop"
	"github.com/cbodonnell/menagerie/pkg/state"
	"github.com/gorilla/mux"
)

// maxActionBytes bounds the size of a dispatched action payload.
const maxActionBytes = 1 << 20

// Game is the part of the game manager the API exposes.
type Game interface {
	State() *types.GameState
	Dispatch(action actions.Action) reducer.Result
	OpenShop(shopID string) reducer.Result
	Trades(shopID string) []types.Trade
	Subscribe(listener state.Listener) func()
	Creatures() []*types.Creature
	Save(ctx context.Context, slot string) error
	LoadSlot(ctx context.Context, slot string) (*types.GameState, error)
	Slots(ctx context.Context) ([]string, error)
}

type DispatchResponse struct {
	Changed bool             `json:"changed"`
	State   *types.GameState `json:"state"`
}

type FlagResponse struct {
	Flag string `json:"flag"`
	Set  bool   `json:"set"`
}

type UnlockedResponse struct {
	ShopID   string `json:"shopId"`
	Unlocked bool   `json:"unlocked"`
}

// TradeResponse describes a catalog trade and whether it can be executed now.
type TradeResponse struct {
	Trade         types.Trade `json:"trade"`
	Available     bool        `json:"available"`
	Reason        string      `json:"reason,omitempty"`
	CooldownUntil int64       `json:"cooldownUntil,omitempty"`
}

type LineageResponse struct {
	ID        string   `json:"id"`
	Ancestors []string `json:"ancestors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

// statusFor maps a rejected action to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, reducer.ErrValidation), errors.Is(err, reducer.ErrUnknownAction):
		return http.StatusBadRequest
	case reducer.IsBusinessRule(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func HandleGetState(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, game.State())
	}
}

func HandleGetStoryFlag(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flag := mux.Vars(r)["flag"]
		writeJSON(w, http.StatusOK, FlagResponse{
			Flag: flag,
			Set:  game.State().HasStoryFlag(flag),
		})
	}
}

func HandleGetShopUnlocked(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shopID := mux.Vars(r)["shopID"]
		writeJSON(w, http.StatusOK, UnlockedResponse{
			ShopID:   shopID,
			Unlocked: shop.IsShopUnlocked(game.State(), shopID),
		})
	}
}

func HandleOpenShop(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := game.OpenShop(mux.Vars(r)["shopID"])
		if result.Err != nil {
			http.Error(w, result.Err.Error(), statusFor(result.Err))
			return
		}
		writeJSON(w, http.StatusOK, DispatchResponse{Changed: result.Changed, State: game.State()})
	}
}

func HandleListShopTrades(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameState := game.State()
		now := time.Now().UnixMilli()
		trades := game.Trades(mux.Vars(r)["shopID"])
		resp := make([]TradeResponse, 0, len(trades))
		for _, trade := range trades {
			view := TradeResponse{Trade: trade, Available: true}
			if err := shop.CheckTrade(gameState, trade, now); err != nil {
				view.Available = false
				view.Reason = err.Error()
			}
			if expiry := reducer.Shops(gameState).Cooldowns[trade.ID]; expiry > now {
				view.CooldownUntil = expiry
			}
			resp = append(resp, view)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleListTransactions(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, shop.TransactionHistory(game.State()))
	}
}

func HandleListCreatures(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, game.Creatures())
	}
}

func HandleGetLineage(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["creatureID"]
		creatures := game.State().Creatures
		if _, ok := creatures.Get(id); !ok {
			http.Error(w, "Creature not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, LineageResponse{
			ID:        id,
			Ancestors: breeding.Lineage(creatures, id),
		})
	}
}

// HandleDispatch decodes the request body as an action of the type named in
// the path and dispatches it.
func HandleDispatch(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := actions.Type(mux.Vars(r)["type"])
		body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBytes))
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		action, err := actions.Decode(t, body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result := game.Dispatch(action)
		if result.Err != nil {
			status := statusFor(result.Err)
			if status == http.StatusInternalServerError {
				log.Error("failed to dispatch %s: %v", t, result.Err)
			}
			http.Error(w, result.Err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, DispatchResponse{Changed: result.Changed, State: game.State()})
	}
}

func HandleListSaves(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := game.Slots(r.Context())
		if err != nil {
			log.Error("failed to list saves: %v", err)
			http.Error(w, "Failed to list saves", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, slots)
	}
}

func HandleSave(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot := mux.Vars(r)["slot"]
		if err := game.Save(r.Context(), slot); err != nil {
			log.Error("failed to save slot %s: %v", slot, err)
			http.Error(w, "Failed to save", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleLoad(game Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot := mux.Vars(r)["slot"]
		loaded, err := game.LoadSlot(r.Context(), slot)
		if err != nil {
			if persistence.IsCorrupt(err) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			log.Error("failed to load slot %s: %v", slot, err)
			http.Error(w, "Failed to load", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, loaded)
	}
}
