package storage

// EngineVersion is stamped onto every BotVersion a backend writes
// (spec.md §3's BotVersion.engine_version), identifying which build of the
// core compiled and validated the bot.
const EngineVersion = "1"

// BatchSize is the per-request chunk size SQL backends split bulk writes
// into (spec.md §4.2's batching rule).
const BatchSize = 25
