// Package stops resolves stop identity between the static schedule and
// the realtime feeds. The two sides may disagree on which of several
// co-located platform codes a trip uses; grouping equivalent ids recovers
// matches that an exact lookup would miss.
package stops

import (
	"github.com/nickdesi/BusTrainGerzat-sub000/config"
	"github.com/nickdesi/BusTrainGerzat-sub000/gtfsrt"
)

// Resolver maps stop ids to their configured groups.
type Resolver struct {
	groupOf map[string]string   // stop id -> group name
	members map[string][]string // group name -> stop ids
}

// NewResolver builds a resolver from the stop-group configuration. The
// "all" pseudo-group only enumerates stops and is not a matching group.
func NewResolver(groups config.StopGroupsConfig) *Resolver {
	r := &Resolver{
		groupOf: map[string]string{},
		members: map[string][]string{},
	}
	for name, ids := range groups {
		if name == "all" {
			continue
		}
		r.members[name] = append([]string(nil), ids...)
		for _, id := range ids {
			r.groupOf[id] = name
		}
	}
	return r
}

// Resolve finds the live stop update for stopID: exact match first, then
// the first match among the other members of stopID's group. The second
// return value is false when nothing matched; callers then fall back to
// the scheduled time and mark the entry as not-realtime.
func (r *Resolver) Resolve(updates map[string]gtfsrt.StopTimeUpdate, stopID string) (gtfsrt.StopTimeUpdate, bool) {
	if u, ok := updates[stopID]; ok {
		return u, true
	}
	group, ok := r.groupOf[stopID]
	if !ok {
		return gtfsrt.StopTimeUpdate{}, false
	}
	for _, member := range r.members[group] {
		if member == stopID {
			continue
		}
		if u, ok := updates[member]; ok {
			return u, true
		}
	}
	return gtfsrt.StopTimeUpdate{}, false
}

// GroupOf returns the group name a stop belongs to, or "".
func (r *Resolver) GroupOf(stopID string) string {
	return r.groupOf[stopID]
}

// InGroup reports whether stopID belongs to the named group.
func (r *Resolver) InGroup(group, stopID string) bool {
	return r.groupOf[stopID] == group
}
