// Package voteservice gates server votes behind per-provider cooldowns and
// turns confirmed votes into vote.confirmed events for the ledger.
package voteservice
