// Package ledgerservice owns player balances, reward-chest items and the
// person-to-person transfer engine of the player-economy context.
//
// Every balance or item transfer is validated in a fixed order, committed as
// one unit of work together with its audit record and outbox event, and can be
// replayed safely through an idempotency key.
package ledgerservice
