package botregistry

import "errors"

// ErrNotFound is returned when no bot version matches the requested bot_id
// (and version_id, for GetVersion).
var ErrNotFound = errors.New("botregistry: bot version not found")
