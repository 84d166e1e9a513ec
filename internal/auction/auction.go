// internal/auction/auction.go
package auction

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bidblitz/bidblitz/internal/catalog"
)

// Status is the lifecycle phase of an auction.
type Status string

const (
	StatusTeamSelection Status = "team_selection"
	StatusInProgress    Status = "in_progress"
	StatusPaused        Status = "paused"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

// EventType tags outbound auction events.
type EventType string

const (
	EventAuctionStarted   EventType = "AuctionStarted"
	EventAuctionUpdate    EventType = "AuctionUpdate"
	EventBidPlaced        EventType = "BidPlaced"
	EventItemAdvanced     EventType = "ItemAdvanced"
	EventAuctionPaused    EventType = "AuctionPaused"
	EventAuctionResumed   EventType = "AuctionResumed"
	EventAuctionReset     EventType = "AuctionReset"
	EventAuctionCompleted EventType = "AuctionCompleted"
)

// Event is broadcast to every connection in the room that owns the auction.
type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *Snapshot              `json:"state,omitempty"`
}

// Snapshot is a read-only projection of the auction, computed under the
// engine lock so it never observes a torn update.
type Snapshot struct {
	Status       Status        `json:"status"`
	Countdown    int           `json:"countdown"`
	Item         *catalog.Item `json:"item,omitempty"`
	Price        string        `json:"price,omitempty"`
	PriceDisplay string        `json:"priceDisplay,omitempty"`
	Leader       string        `json:"leader,omitempty"`
	Index        int           `json:"index"`
	Total        int           `json:"total"`
}

// lot is one queued item together with its mutable bid state. Leader == ""
// means no bid has been accepted yet; Price is meaningful only once a leader
// is set.
type lot struct {
	item   catalog.Item
	price  decimal.Decimal
	leader string
	sold   bool
}

// Auction is the per-room session engine: the state machine, the bidding
// queue, and the countdown task. All state is guarded by Mu; exported
// methods lock internally.
type Auction struct {
	Mu sync.Mutex

	// TickInterval is the length of one countdown unit. Tests shrink it.
	TickInterval time.Duration

	// BroadcastFn, when set, receives every event the engine emits,
	// including timer-driven ones. It must not call back into the engine.
	BroadcastFn func(Event)

	items         []catalog.Item
	categoryOrder []string

	status       Status
	queue        []*lot
	idx          int
	countdown    int
	initialCount int

	stopTick chan struct{}
	tickDone chan struct{}
}

// New builds an auction in the team-selection phase. The bidding queue is
// built lazily on the first start.
func New(items []catalog.Item, categoryOrder []string, countdownSecs int) *Auction {
	return &Auction{
		TickInterval:  time.Second,
		items:         items,
		categoryOrder: categoryOrder,
		status:        StatusTeamSelection,
		initialCount:  countdownSecs,
	}
}

var (
	one  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
	five = decimal.NewFromInt(5)

	step5L  = decimal.RequireFromString("0.05")
	step10L = decimal.RequireFromString("0.1")
	step20L = decimal.RequireFromString("0.2")
	step25L = decimal.RequireFromString("0.25")
)

// Increment returns the bid step for a current price p, per the standard
// increment slabs.
func Increment(p decimal.Decimal) decimal.Decimal {
	switch {
	case p.LessThan(one):
		return step5L
	case p.LessThan(two):
		return step10L
	case p.LessThan(five):
		return step20L
	default:
		return step25L
	}
}

// initQueueLocked groups the item pool by category, shuffles within each
// category, and concatenates the groups in the configured order. Categories
// absent from the order are not auctioned.
func (a *Auction) initQueueLocked() {
	a.queue = a.queue[:0]
	for _, cat := range a.categoryOrder {
		var group []*lot
		for _, it := range a.items {
			if it.Category == cat {
				group = append(group, &lot{item: it})
			}
		}
		rand.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		a.queue = append(a.queue, group...)
	}
	a.idx = 0
}

// Start begins bidding. Valid from team selection (queue is built lazily)
// or from paused; returns false with no state change otherwise, or when the
// queue is empty or exhausted.
func (a *Auction) Start() bool {
	a.Mu.Lock()

	resumed := false
	switch a.status {
	case StatusTeamSelection:
		if len(a.queue) == 0 {
			a.initQueueLocked()
		}
		if len(a.queue) == 0 {
			a.Mu.Unlock()
			return false
		}
	case StatusPaused:
		if a.idx >= len(a.queue) {
			a.Mu.Unlock()
			return false
		}
		resumed = true
	default:
		a.Mu.Unlock()
		return false
	}

	a.status = StatusInProgress
	a.countdown = a.initialCount
	a.startCountdownLocked()

	ev := Event{Type: EventAuctionStarted, State: a.snapshotLocked()}
	if resumed {
		ev.Type = EventAuctionResumed
	}
	a.fireLocked(ev)
	a.Mu.Unlock()
	return true
}

// Resume continues a paused auction on the same item, with the bid state
// intact. Returns false unless the auction is paused with items remaining.
func (a *Auction) Resume() bool {
	a.Mu.Lock()
	if a.status != StatusPaused || a.idx >= len(a.queue) {
		a.Mu.Unlock()
		return false
	}
	a.status = StatusInProgress
	a.countdown = a.initialCount
	a.startCountdownLocked()
	a.fireLocked(Event{Type: EventAuctionResumed, State: a.snapshotLocked()})
	a.Mu.Unlock()
	return true
}

// PlaceBid records a bid for team on the item currently on the block. The
// first bid lands at the base price; later bids add the slab increment. The
// countdown rearms on every accepted bid. Returns false while the auction is
// not in progress.
func (a *Auction) PlaceBid(team string) bool {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	if a.status != StatusInProgress || a.idx >= len(a.queue) {
		return false
	}
	l := a.queue[a.idx]
	if l.leader == "" {
		l.price = l.item.BasePrice
	} else {
		l.price = l.price.Add(Increment(l.price))
	}
	l.leader = team
	a.countdown = a.initialCount

	a.fireLocked(Event{Type: EventBidPlaced, State: a.snapshotLocked()})
	return true
}

// AdvanceItem closes bidding on the current item and moves to the next one,
// completing the auction when the queue is exhausted. Leader-initiated; the
// countdown expiring performs the same finalization.
func (a *Auction) AdvanceItem() bool {
	a.Mu.Lock()
	if a.status != StatusInProgress || a.idx >= len(a.queue) {
		a.Mu.Unlock()
		return false
	}
	a.finalizeCurrentLocked()

	var stop, done chan struct{}
	if a.status == StatusCompleted {
		stop, done = a.stopTick, a.tickDone
		a.stopTick, a.tickDone = nil, nil
	}
	a.Mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return true
}

// Pause disarms the countdown without finalizing the current item. The bid
// state is preserved so resuming continues the same item at the same price.
// The countdown task is joined before Pause returns.
func (a *Auction) Pause() bool {
	a.Mu.Lock()
	if a.status != StatusInProgress {
		a.Mu.Unlock()
		return false
	}
	a.status = StatusPaused
	stop, done := a.stopTick, a.tickDone
	a.stopTick, a.tickDone = nil, nil
	a.fireLocked(Event{Type: EventAuctionPaused, State: a.snapshotLocked()})
	a.Mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return true
}

// Cancel stops the auction for good. Terminal; not reversed by Reset.
func (a *Auction) Cancel() {
	a.Mu.Lock()
	if a.status == StatusCancelled {
		a.Mu.Unlock()
		return
	}
	a.status = StatusCancelled
	stop, done := a.stopTick, a.tickDone
	a.stopTick, a.tickDone = nil, nil
	a.Mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Reset returns the auction to team selection, clearing every recorded bid
// and rewinding the queue. Valid from any state except cancelled.
func (a *Auction) Reset() bool {
	a.Mu.Lock()
	if a.status == StatusCancelled {
		a.Mu.Unlock()
		return false
	}
	stop, done := a.stopTick, a.tickDone
	a.stopTick, a.tickDone = nil, nil

	a.status = StatusTeamSelection
	for _, l := range a.queue {
		l.price = decimal.Decimal{}
		l.leader = ""
		l.sold = false
	}
	a.idx = 0
	a.countdown = 0
	a.fireLocked(Event{Type: EventAuctionReset, State: a.snapshotLocked()})
	a.Mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return true
}

// Snapshot returns the current read-only projection.
func (a *Auction) Snapshot() Snapshot {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	return *a.snapshotLocked()
}

// CurrentStatus returns the current lifecycle phase.
func (a *Auction) CurrentStatus() Status {
	a.Mu.Lock()
	defer a.Mu.Unlock()
	return a.status
}

// finalizeCurrentLocked records SOLD/UNSOLD for the item on the block and
// advances the index, rearming the countdown or completing the auction.
// Assumes the lock is held.
func (a *Auction) finalizeCurrentLocked() {
	l := a.queue[a.idx]
	l.sold = l.leader != ""

	result := map[string]interface{}{
		"name": l.item.Name,
		"sold": l.sold,
	}
	if l.sold {
		result["winner"] = l.leader
		result["price"] = l.price.String()
		result["priceDisplay"] = catalog.FormatPrice(l.price)
	}

	a.idx++
	if a.idx >= len(a.queue) {
		a.status = StatusCompleted
		a.countdown = 0
		a.fireLocked(Event{Type: EventItemAdvanced, Payload: result, State: a.snapshotLocked()})
		a.fireLocked(Event{Type: EventAuctionCompleted, State: a.snapshotLocked()})
		return
	}
	a.countdown = a.initialCount
	a.fireLocked(Event{Type: EventItemAdvanced, Payload: result, State: a.snapshotLocked()})
}

// snapshotLocked builds a Snapshot. Assumes the lock is held.
func (a *Auction) snapshotLocked() *Snapshot {
	s := &Snapshot{
		Status:    a.status,
		Countdown: a.countdown,
		Index:     a.idx,
		Total:     len(a.queue),
	}
	if a.idx < len(a.queue) {
		l := a.queue[a.idx]
		it := l.item
		s.Item = &it
		if l.leader != "" {
			s.Price = l.price.String()
			s.PriceDisplay = catalog.FormatPrice(l.price)
			s.Leader = l.leader
		}
	}
	return s
}

// fireLocked hands an event to the broadcast callback. Assumes the lock is
// held; BroadcastFn must therefore never call back into the engine.
func (a *Auction) fireLocked(ev Event) {
	if a.BroadcastFn != nil {
		a.BroadcastFn(ev)
	}
}

// startCountdownLocked launches the countdown task if none is running.
// Assumes the lock is held.
func (a *Auction) startCountdownLocked() {
	if a.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	a.stopTick = stop
	a.tickDone = done
	go a.runCountdown(stop, done)
}

// runCountdown decrements the countdown once per tick interval and finalizes
// the current item when it reaches zero. It exits when signalled via stop,
// when the auction leaves the in-progress state, or when it completes the
// auction itself.
func (a *Auction) runCountdown(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.tickOnce() {
				return
			}
		}
	}
}

// tickOnce applies a single countdown decrement. Returns false when the
// countdown task should exit.
func (a *Auction) tickOnce() bool {
	a.Mu.Lock()
	defer a.Mu.Unlock()

	if a.status != StatusInProgress {
		return false
	}
	a.countdown--
	if a.countdown > 0 {
		return true
	}
	a.finalizeCurrentLocked()
	if a.status != StatusInProgress {
		// Completed from inside the task; nothing will join us.
		a.stopTick, a.tickDone = nil, nil
		return false
	}
	return true
}
