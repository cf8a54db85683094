package router

import "errors"

// ErrNoMatch is returned when no flow's command list matches the inbound
// event (spec.md §4.3 steps 2/3). The caller falls back to the current OPEN
// conversation's position, or the bot's default flow if none.
var ErrNoMatch = errors.New("router: no flow matched")

// ErrNoDefaultFlow is returned when a bot has no flow matching its declared
// DefaultFlow — a bot validation failure that should never reach routing on
// a validated bot, but is surfaced rather than panicking.
var ErrNoDefaultFlow = errors.New("router: bot has no default flow")
