package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cloudx-io/assetauction/auctionapi"
	"github.com/cloudx-io/assetauction/core"
)

// Router returns the read-only HTTP query API.
func (s *AuctionServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/auction", s.auctionHandler).Methods("GET")
	r.HandleFunc("/auction/events", s.eventsHandler).Methods("GET")
	r.HandleFunc("/auction/refunds/{address}", s.refundHandler).Methods("GET")
	r.HandleFunc("/receipt", s.receiptHandler).Methods("GET")
	r.HandleFunc("/receipt/public-key", s.publicKeyHandler).Methods("GET")

	return r
}

type refundResponse struct {
	Address core.Address `json:"address"`
	Amount  int64        `json:"amount"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: Failed to encode HTTP response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *AuctionServer) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"auction": s.currentEngine() != nil,
	})
}

func (s *AuctionServer) auctionHandler(w http.ResponseWriter, _ *http.Request) {
	resp := s.handleSnapshot()
	if !resp.Success {
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *AuctionServer) eventsHandler(w http.ResponseWriter, r *http.Request) {
	var from uint64
	if v := r.URL.Query().Get("from"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be a non-negative integer")
			return
		}
		from = n
	}

	resp := s.handleEvents(auctionapi.EventsRequest{Type: auctionapi.TypeEvents, FromSeq: from})
	if !resp.Success {
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp.Events)
}

func (s *AuctionServer) refundHandler(w http.ResponseWriter, r *http.Request) {
	e := s.currentEngine()
	if e == nil {
		writeError(w, http.StatusNotFound, errNoAuction.Error())
		return
	}

	addr := core.Address(mux.Vars(r)["address"])
	writeJSON(w, http.StatusOK, refundResponse{Address: addr, Amount: e.PendingReturn(addr)})
}

func (s *AuctionServer) receiptHandler(w http.ResponseWriter, _ *http.Request) {
	receipt := s.lastReceipt()
	if receipt == nil {
		writeError(w, http.StatusNotFound, "no receipt has been issued")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *AuctionServer) publicKeyHandler(w http.ResponseWriter, _ *http.Request) {
	publicKeyPEM, err := s.keys.PublicKeyPEM()
	if err != nil {
		log.Printf("ERROR: Failed to export public key: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to export public key")
		return
	}
	writeJSON(w, http.StatusOK, auctionapi.PublicKeyResponse{
		Algorithm: ReceiptKeyAlgorithm,
		PublicKey: publicKeyPEM,
	})
}
