package world

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tileworld/internal/game/object"
	"github.com/cory-johannsen/tileworld/internal/game/room"
)

// ErrTopology marks a pairing bucket holding an exit from a room outside
// its own key. It can only come from a bucketing bug.
var ErrTopology = errors.New("topology pairing inconsistent")

// pairKey is an unordered room pair, stored sorted.
type pairKey struct {
	first, second string
}

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{first: a, second: b}
}

func (k pairKey) String() string {
	return fmt.Sprintf("%s <-> %s", k.first, k.second)
}

type endpoint struct {
	room string
	exit object.Exit
}

// TopologyReport summarizes a BuildTopology run.
type TopologyReport struct {
	// Linked counts the door pairs connected.
	Linked int
	// Skipped lists the room pairs left disconnected.
	Skipped []string
}

// BuildTopology connects doors across rooms. Exits are bucketed by the
// sorted pair (origin room, linked room); a bucket holding exactly two exits
// from opposite ends is linked so that each door leads to the companion
// door's position in the other room. Any other bucket is logged and skipped.
//
// Postcondition: Returns an error wrapping ErrTopology if a bucket entry
// originates from neither room of its key; doors linked before that point
// stay linked.
func BuildTopology(rooms []*room.Room, logger *zap.Logger) (TopologyReport, error) {
	var report TopologyReport
	known := make(map[string]bool, len(rooms))
	for _, r := range rooms {
		known[r.Name()] = true
	}

	buckets := make(map[pairKey][]endpoint)
	for _, r := range rooms {
		for _, ex := range r.Exits() {
			if ex.LinkedRoom == "" || ex.Door == nil {
				continue
			}
			k := newPairKey(r.Name(), ex.LinkedRoom)
			buckets[k] = append(buckets[k], endpoint{room: r.Name(), exit: ex})
		}
	}

	keys := make([]pairKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].first != keys[j].first {
			return keys[i].first < keys[j].first
		}
		return keys[i].second < keys[j].second
	})

	for _, k := range keys {
		doors := buckets[k]
		if len(doors) != 2 {
			logger.Warn("expected 2 doors",
				zap.String("pair", k.String()),
				zap.Int("count", len(doors)),
			)
			report.Skipped = append(report.Skipped, k.String())
			continue
		}
		if !known[k.first] || !known[k.second] {
			logger.Warn("door links to unknown room", zap.String("pair", k.String()))
			report.Skipped = append(report.Skipped, k.String())
			continue
		}

		one, two, err := splitPair(k, doors)
		if err != nil {
			return report, err
		}
		if one == nil || two == nil {
			logger.Warn("both doors declared by one room",
				zap.String("pair", k.String()),
				zap.String("room", doors[0].room),
			)
			report.Skipped = append(report.Skipped, k.String())
			continue
		}

		one.exit.Door.ConnectTo(k.second, two.exit.Position)
		two.exit.Door.ConnectTo(k.first, one.exit.Position)
		report.Linked++
		logger.Debug("doors linked",
			zap.String("pair", k.String()),
			zap.Stringer("first_door", one.exit.Position),
			zap.Stringer("second_door", two.exit.Position),
		)
	}
	return report, nil
}

// splitPair orders a two-door bucket by origin: the first result came from
// k.first and the second from k.second. Either is nil when one room declared
// both doors.
func splitPair(k pairKey, doors []endpoint) (one, two *endpoint, err error) {
	if k.first == k.second {
		return &doors[0], &doors[1], nil
	}
	for i := range doors {
		switch doors[i].room {
		case k.first:
			one = &doors[i]
		case k.second:
			two = &doors[i]
		default:
			return nil, nil, fmt.Errorf("pair %s holds exit from %q: %w", k, doors[i].room, ErrTopology)
		}
	}
	return one, two, nil
}
