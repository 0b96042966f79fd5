// Package websocket pushes live game updates to spectators.
//
// A central Hub tracks the connections following each game. Clients connect
// to /ws?game={id} and receive:
//   - a "state" frame with the current snapshot on connect
//   - an "event" frame for every game event (move, item_used, turn_changed,
//     player_left, timer_tick, game_end)
//
// The Hub implements service.Notifier, so it is handed to the game service
// as a collaborator. Notify never blocks; when the broadcast queue is full
// the event is dropped and logged. A client that cannot keep up is
// disconnected.
//
// Usage:
//
//	hub := websocket.NewHub(log)
//	go hub.Run(ctx)
//	svc := service.NewGameService(store, rulesets, service.WithNotifier(hub))
//
// Connections are read-only. Actions go through the HTTP API or MCP tools.
package websocket
