package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/assetauction/auctionapi"
	"github.com/cloudx-io/assetauction/core"
)

func get(t *testing.T, ts *testServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHTTP_BeforeCreate(t *testing.T) {
	ts := createTestServer(t, nil)

	rec := get(t, ts, "/health")
	check.Equal(t, http.StatusOK, rec.Code)
	check.True(t, strings.Contains(rec.Body.String(), `"auction":false`))

	check.Equal(t, http.StatusNotFound, get(t, ts, "/auction").Code)
	check.Equal(t, http.StatusNotFound, get(t, ts, "/auction/events").Code)
	check.Equal(t, http.StatusNotFound, get(t, ts, "/auction/refunds/alice").Code)
	check.Equal(t, http.StatusNotFound, get(t, ts, "/receipt").Code)
}

func TestHTTP_Queries(t *testing.T) {
	ts := createStartedServer(t, nil)
	assert.True(t, ts.send(t, bid("alice", 1000)).Success)
	assert.True(t, ts.send(t, bid("bob", 1100)).Success)

	rec := get(t, ts, "/auction")
	assert.Equal(t, http.StatusOK, rec.Code)
	var snap auctionapi.Response
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	check.Equal(t, int64(1100), snap.Auction.HighestBid)
	check.Equal(t, int64(1200), snap.MinimumNextBid)

	rec = get(t, ts, "/auction/events?from=3")
	assert.Equal(t, http.StatusOK, rec.Code)
	var events []core.Event
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	check.Equal(t, 2, len(events))
	check.Equal(t, core.Address("alice"), events[1].Counterparty)

	check.Equal(t, http.StatusBadRequest, get(t, ts, "/auction/events?from=-1").Code)

	rec = get(t, ts, "/auction/refunds/alice")
	assert.Equal(t, http.StatusOK, rec.Code)
	var refund refundResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refund))
	check.Equal(t, refundResponse{Address: "alice", Amount: 1000}, refund)

	ts.clock.Advance(time.Hour)
	assert.True(t, ts.send(t, caller(auctionapi.TypeFinalize, "bob")).Success)
	rec = get(t, ts, "/receipt")
	check.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTP_PublicKey(t *testing.T) {
	ts := createTestServer(t, nil)

	rec := get(t, ts, "/receipt/public-key")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp auctionapi.PublicKeyResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	check.Equal(t, ReceiptKeyAlgorithm, resp.Algorithm)
	check.True(t, strings.HasPrefix(resp.PublicKey, "-----BEGIN PUBLIC KEY-----"))

	rec = httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/receipt/public-key", nil))
	check.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
