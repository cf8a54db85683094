package memory

import "github.com/flowkit/convoengine/pkg/storage"

var _ storage.Port = (*Backend)(nil)
