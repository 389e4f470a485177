package lattice

import "sort"

// Match is one qualifying record with its discovery score.
type Match struct {
	Record *ServiceRecord `json:"service"`

	// Score is |required| + |optional ∩ capabilities|. Optional matches break
	// ties upward but never substitute for a missing required capability.
	Score int `json:"match_score"`

	// ProvidesOptional lists the optional capabilities this record covers.
	ProvidesOptional []string `json:"provides_optional"`
}

// Discover ranks the active records that provide every required capability.
//
// A record qualifies only if its capability set contains all of required:
// there is no partial credit. Qualifying records are ordered by score
// descending, then by most recent LastHeartbeatAt (freshest-known-good
// first), then by ID for determinism. An empty result is not an error.
func Discover(records []*ServiceRecord, required, optional []string) []*Match {
	required = DedupeCapabilities(required)
	optional = DedupeCapabilities(optional)

	matches := make([]*Match, 0, len(records))
	for _, rec := range records {
		if rec.Status != StatusActive {
			continue
		}
		if !providesAll(rec, required) {
			continue
		}

		provided := make([]string, 0, len(optional))
		for _, c := range optional {
			if rec.HasCapability(c) {
				provided = append(provided, c)
			}
		}

		matches = append(matches, &Match{
			Record:           rec,
			Score:            len(required) + len(provided),
			ProvidesOptional: provided,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if !matches[i].Record.LastHeartbeatAt.Equal(matches[j].Record.LastHeartbeatAt) {
			return matches[i].Record.LastHeartbeatAt.After(matches[j].Record.LastHeartbeatAt)
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})

	return matches
}

// FindOne is the single-capability form of Discover. It is the only discovery
// call that reports "no provider" as an error, because its callers always
// expect exactly one target.
func FindOne(records []*ServiceRecord, capability string) (*Match, error) {
	matches := Discover(records, []string{capability}, nil)
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return matches[0], nil
}

func providesAll(rec *ServiceRecord, required []string) bool {
	for _, c := range required {
		if !rec.HasCapability(c) {
			return false
		}
	}
	return true
}
