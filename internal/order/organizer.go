package order

import "math/rand"

// ChooseOrganizer picks a candidate uniformly at random, skipping last when
// anyone else is available.
func ChooseOrganizer(candidates []string, last string, rng *rand.Rand) (string, error) {
	if len(candidates) == 0 {
		return "", ErrEmptyCandidateSet
	}
	pool := candidates
	if last != "" {
		rest := make([]string, 0, len(candidates))
		for _, id := range candidates {
			if id != last {
				rest = append(rest, id)
			}
		}
		if len(rest) > 0 {
			pool = rest
		}
	}
	return pool[rng.Intn(len(pool))], nil
}
