// Package api provides the HTTP REST API for the ladder game server.
//
// Endpoints:
//
// Games:
//   - POST /api/games - Create a game on a generated board
//   - GET /api/games - List games (?sort=id|created|accessed&order=asc|desc&limit=N)
//   - GET /api/games/{id} - Game info including the board
//   - DELETE /api/games/{id} - Abandon and remove a game
//
// Player actions:
//   - POST /api/games/{id}/roll - {"player_user_id":1,"dice_slot":1}
//   - POST /api/games/{id}/items - {"player_user_id":1,"item_slot":2,"target_user_id":3}
//   - POST /api/games/{id}/leave - {"player_user_id":1}
//
// State:
//   - GET /api/games/{id}/state - Current snapshot
//   - GET /api/games/{id}/board - Board definition
//   - GET /api/games/{id}/actions - Journaled actions, oldest first (?limit=N)
//
// Rulesets:
//   - GET /api/rulesets, GET /api/rulesets/{name}, POST /api/rulesets
//
// Players:
//   - PUT /api/players/{id}/slots - Equip an item or dice slot
//   - POST /api/players/{id}/stock - Add stock
//   - GET /api/players/{id}/wallet - Coins earned
//
// Live updates are served on GET /ws?game={id}.
//
// Errors are returned as {"error": "..."} with 400 for invalid input, 404
// for unknown games or rulesets, 409 for rule violations such as acting out
// of turn, and 500 otherwise.
package api
