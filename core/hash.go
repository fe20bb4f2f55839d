package core

import (
	"crypto/sha256"
	"fmt"
)

// ComputeEventHash chains an event onto the hash of its predecessor.
// The first event uses an empty prevHash.
//
// Formula: SHA256(prev_hash + "|" + auction_id + "|" + seq + "|" + type + "|" + actor + "|" + counterparty + "|" + amount + "|" + outcome + "|" + unix_nano)
func ComputeEventHash(prevHash string, ev Event) string {
	data := fmt.Sprintf("%s|%s|%d|%s|%s|%s|%d|%s|%d",
		prevHash, ev.AuctionID, ev.Seq, ev.Type, ev.Actor, ev.Counterparty, ev.Amount, ev.Outcome, ev.At.UnixNano())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// VerifyEventChain checks sequence numbers and hash links of a contiguous run of events.
// prevHash is the hash of the event preceding events[0] ("" when events starts at Seq 1).
func VerifyEventChain(prevHash string, events []Event) error {
	for i, ev := range events {
		if i > 0 && ev.Seq != events[i-1].Seq+1 {
			return fmt.Errorf("event %d: sequence gap after %d", ev.Seq, events[i-1].Seq)
		}
		if ev.PrevHash != prevHash {
			return fmt.Errorf("event %d: prev hash %s does not match %s", ev.Seq, ev.PrevHash, prevHash)
		}
		if want := ComputeEventHash(prevHash, ev); ev.Hash != want {
			return fmt.Errorf("event %d: hash %s does not match computed %s", ev.Seq, ev.Hash, want)
		}
		prevHash = ev.Hash
	}
	return nil
}
