package parsing

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// coseSign1Tag is the CBOR tag of a tagged COSE_Sign1 message (RFC 9052).
const coseSign1Tag = 18

// ExtractCOSEPayload extracts the payload from a COSE_Sign1 4-element array
// COSE_Sign1 structure: [protected, unprotected, payload, signature]
// Both tagged (go-cose) and untagged (AWS Nitro) messages are accepted.
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(coseBytes, &tag); err == nil {
		if tag.Number != coseSign1Tag {
			return nil, fmt.Errorf("unexpected CBOR tag %d, want %d", tag.Number, coseSign1Tag)
		}
		coseBytes = tag.Content
	}

	var coseArray []any
	err := cbor.Unmarshal(coseBytes, &coseArray)
	if err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}

	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}

	return payload, nil
}
