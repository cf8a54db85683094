package hold

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// StepHash returns the md5 hex digest of the canonical form of body: parsed
// through gjson into plain Go values and re-marshaled, which sorts object
// keys deterministically (encoding/json always emits map keys in sorted
// order). The real AST canonicalization lives in the out-of-scope
// interpreter; this is the closest stand-in reachable from an opaque
// json.RawMessage step body (spec.md §4.4).
func StepHash(body json.RawMessage) (string, error) {
	canonical, err := canonicalize(body)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalize(body json.RawMessage) ([]byte, error) {
	if len(body) == 0 {
		return []byte("null"), nil
	}
	value := gjson.ParseBytes(body).Value()
	return json.Marshal(value)
}
