package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a lifecycle transition.
type EventType string

const (
	EventCreated         EventType = "auction_created"
	EventStarted         EventType = "auction_started"
	EventBidPlaced       EventType = "bid_placed"
	EventRefundWithdrawn EventType = "refund_withdrawn"
	EventFinalized       EventType = "auction_finalized"
	EventCancelled       EventType = "auction_cancelled"
)

// Event is one entry of the append-only lifecycle log.
type Event struct {
	Seq       uint64    `json:"seq" cbor:"seq"`
	ID        string    `json:"id" cbor:"id"`
	AuctionID string    `json:"auction_id" cbor:"auction_id"`
	Type      EventType `json:"type" cbor:"type"`

	// Actor is the caller; Counterparty is the other party affected
	// (outbid bidder on bid_placed, winner on auction_finalized).
	Actor        Address   `json:"actor,omitempty" cbor:"actor"`
	Counterparty Address   `json:"counterparty,omitempty" cbor:"counterparty"`
	Amount       int64     `json:"amount,omitempty" cbor:"amount"`
	Outcome      State     `json:"outcome,omitempty" cbor:"outcome"`
	At           time.Time `json:"at" cbor:"at"`

	PrevHash string `json:"prev_hash" cbor:"prev_hash"`
	Hash     string `json:"hash" cbor:"hash"`
}

// EventLog is the engine's append-only history with non-blocking fan-out to subscribers.
type EventLog struct {
	mu          sync.RWMutex
	auctionID   string
	events      []Event
	subscribers map[int]chan Event
	nextSubID   int
	dropped     uint64
}

func newEventLog(auctionID string, history []Event) *EventLog {
	return &EventLog{
		auctionID:   auctionID,
		events:      history,
		subscribers: make(map[int]chan Event),
	}
}

// append stamps, chains and records ev, then offers it to every subscriber.
func (l *EventLog) append(ev Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev.Seq = uint64(len(l.events)) + 1
	ev.ID = uuid.NewString()
	ev.AuctionID = l.auctionID
	if len(l.events) > 0 {
		ev.PrevHash = l.events[len(l.events)-1].Hash
	}
	ev.Hash = ComputeEventHash(ev.PrevHash, ev)
	l.events = append(l.events, ev)

	for _, ch := range l.subscribers {
		select {
		case ch <- ev:
		default:
			l.dropped++
		}
	}
	return ev
}

// Since returns a copy of the events with Seq >= fromSeq.
func (l *EventLog) Since(fromSeq uint64) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if fromSeq == 0 {
		fromSeq = 1
	}
	if fromSeq > uint64(len(l.events)) {
		return []Event{}
	}
	out := make([]Event, len(l.events)-int(fromSeq-1))
	copy(out, l.events[fromSeq-1:])
	return out
}

// Head returns the hash of the latest event.
func (l *EventLog) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.events) == 0 {
		return ""
	}
	return l.events[len(l.events)-1].Hash
}

// Subscribe registers a channel that receives events appended from now on.
// Sends never block: when the buffer is full the event is dropped for that
// subscriber, who can catch up with Since. The returned func unsubscribes.
func (l *EventLog) Subscribe(buffer int) (<-chan Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, buffer)
	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subscribers, id)
			close(ch)
		})
	}
}

// Dropped returns how many subscriber deliveries were skipped.
func (l *EventLog) Dropped() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}
