package parsing

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func nitroMessage(t *testing.T, doc map[string]any) []byte {
	t.Helper()
	nested, err := cbor.Marshal(doc)
	assert.NoError(t, err)
	msg, err := cbor.Marshal([]any{[]byte{0x01}, map[string]any{}, nested, []byte{0x02}})
	assert.NoError(t, err)
	return msg
}

func TestExtractCOSEPayload(t *testing.T) {
	untagged, err := cbor.Marshal([]any{[]byte{0xa0}, map[string]any{}, []byte("payload"), []byte("sig")})
	assert.NoError(t, err)
	tagged, err := cbor.Marshal(cbor.Tag{Number: 18, Content: []any{[]byte{0xa0}, map[string]any{}, []byte("payload"), []byte("sig")}})
	assert.NoError(t, err)
	wrongTag, err := cbor.Marshal(cbor.Tag{Number: 98, Content: []any{[]byte{}, []byte{}, []byte{}, []byte{}}})
	assert.NoError(t, err)
	short, err := cbor.Marshal([]any{[]byte{}, []byte("payload")})
	assert.NoError(t, err)
	badPayload, err := cbor.Marshal([]any{[]byte{}, map[string]any{}, "text", []byte{}})
	assert.NoError(t, err)

	tests := []struct {
		name    string
		input   []byte
		want    []byte
		wantErr bool
	}{
		{name: "untagged", input: untagged, want: []byte("payload")},
		{name: "tagged", input: tagged, want: []byte("payload")},
		{name: "wrong tag", input: wrongTag, wantErr: true},
		{name: "two elements", input: short, wantErr: true},
		{name: "payload not bytes", input: badPayload, wantErr: true},
		{name: "not cbor", input: []byte{0xff, 0x00}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractCOSEPayload(tt.input)
			if tt.wantErr {
				check.Error(t, err)
				return
			}
			check.NoError(t, err)
			check.Equal(t, tt.want, got)
		})
	}
}

func TestParseNitroDocument(t *testing.T) {
	msg := nitroMessage(t, map[string]any{
		"module_id":   "i-0abc-enc0123",
		"digest":      "SHA384",
		"timestamp":   uint64(1767225600000),
		"pcrs":        map[uint64][]byte{0: {0xde, 0xad}, 2: {0xbe, 0xef}},
		"certificate": []byte("cert"),
		"cabundle":    [][]byte{[]byte("root"), []byte("intermediate")},
		"user_data":   []byte("digest"),
		"nonce":       []byte("n-1"),
	})

	doc, err := ParseNitroDocument(msg)
	assert.NoError(t, err)
	check.Equal(t, "i-0abc-enc0123", doc.ModuleID)
	check.Equal(t, uint64(1767225600000), doc.Timestamp)
	check.Equal(t, "dead", FormatPCR(doc.PCRs[0]))
	check.Equal(t, "", FormatPCR(doc.PCRs[1]))
	check.Equal(t, []byte("digest"), doc.UserData)
	check.Equal(t, []string{"cm9vdA==", "aW50ZXJtZWRpYXRl"}, EncodeCertificateBundle(doc.CABundle))
}

func TestParseNitroDocument_BadPayload(t *testing.T) {
	msg, err := cbor.Marshal([]any{[]byte{}, map[string]any{}, []byte{0xff}, []byte{}})
	assert.NoError(t, err)

	_, err = ParseNitroDocument(msg)
	check.Error(t, err)
}
