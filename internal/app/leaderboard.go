package app

import (
	"sort"
	"sync"

	"safepass-compliance/internal/domain"
)

// rankEntries orders by safety index desc, then name, then driver id so ties are stable.
func rankEntries(entries []domain.LeaderboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SafetyIndex != entries[j].SafetyIndex {
			return entries[i].SafetyIndex > entries[j].SafetyIndex
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].DriverID < entries[j].DriverID
	})
}

// leaderboardHub fans region leaderboards out to subscribers.
type leaderboardHub struct {
	mu          sync.Mutex
	subscribers map[domain.Region]map[chan domain.Leaderboard]struct{}
}

func newLeaderboardHub() *leaderboardHub {
	return &leaderboardHub{subscribers: make(map[domain.Region]map[chan domain.Leaderboard]struct{})}
}

func (h *leaderboardHub) subscribe(region domain.Region, initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)
	ch <- initial

	h.mu.Lock()
	subs, ok := h.subscribers[region]
	if !ok {
		subs = make(map[chan domain.Leaderboard]struct{})
		h.subscribers[region] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[region]
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(h.subscribers, region)
		}
	}
	return ch, cancel
}

func (h *leaderboardHub) hasSubscribers(region domain.Region) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[region]) > 0
}

func (h *leaderboardHub) broadcast(lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[lb.Region] {
		select {
		case ch <- lb:
		default:
			// Slow subscriber: drop its oldest snapshot so broadcast never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
