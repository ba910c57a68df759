package feed

import (
	"context"
	"time"
)

// Exclusions are the users hidden from a viewer, by reason.
type Exclusions struct {
	BlockedByMe  []string
	BlockedMe    []string
	SeenRecent   []string
	MatchedPeers []string
}

// All is the deduplicated union of every reason.
func (e Exclusions) All() []string {
	return union(e.BlockedByMe, e.BlockedMe, e.SeenRecent, e.MatchedPeers)
}

// Durable drops the recency reason; blocks and matches do not lapse.
func (e Exclusions) Durable() []string {
	return union(e.BlockedByMe, e.BlockedMe, e.MatchedPeers)
}

func (e Exclusions) counts() ExcludeCounts {
	return ExcludeCounts{
		BlockedByMe:  len(e.BlockedByMe),
		BlockedMe:    len(e.BlockedMe),
		SeenRecent:   len(e.SeenRecent),
		MatchedPeers: len(e.MatchedPeers),
	}
}

func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, id := range l {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// exclusions loads blocks in both directions, recent FeedSeen rows
// after since, and matched peers.
func (s *Service) exclusions(ctx context.Context, viewerID string, since time.Time) (Exclusions, error) {
	var (
		ex  Exclusions
		err error
	)
	if ex.BlockedByMe, err = s.blockRepo.BlockedBy(ctx, viewerID); err != nil {
		return ex, err
	}
	if ex.BlockedMe, err = s.blockRepo.BlockersOf(ctx, viewerID); err != nil {
		return ex, err
	}
	if ex.SeenRecent, err = s.seenRepo.RecentIDs(ctx, viewerID, since); err != nil {
		return ex, err
	}
	if ex.MatchedPeers, err = s.matchRepo.PeerIDs(ctx, viewerID); err != nil {
		return ex, err
	}
	return ex, nil
}
