package oracle

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/siftlabs/sift/internal/contracts"
)

// ErrNoCandidates is returned when no JSON array can be recovered from
// the model response.
var ErrNoCandidates = errors.New("oracle: no candidate array in response")

var (
	fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	arrayRe = regexp.MustCompile(`(?s)\[.*\]`)
)

// Keys under which models tend to nest the array when they ignore the
// "array only" instruction.
var wrapperKeys = []string{"entities", "results", "scores", "signals", "data"}

// ParseCandidates recovers signal candidates from a model response.
// Accepts a bare array, a fenced array, an object wrapping the array
// under a known key, a single unwrapped object, or an array embedded in
// surrounding prose.
func ParseCandidates(raw string) ([]contracts.SignalCandidate, error) {
	s := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	if cands, ok := decodeArray(s); ok {
		return normalize(cands), nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &wrapper); err == nil {
		for _, key := range wrapperKeys {
			inner, ok := wrapper[key]
			if !ok {
				continue
			}
			if cands, ok := decodeArray(string(inner)); ok {
				return normalize(cands), nil
			}
		}
		var one contracts.SignalCandidate
		if err := json.Unmarshal([]byte(s), &one); err == nil && one.SignalType != "" {
			return normalize([]contracts.SignalCandidate{one}), nil
		}
	}

	if m := arrayRe.FindString(s); m != "" {
		if cands, ok := decodeArray(m); ok {
			return normalize(cands), nil
		}
	}

	return nil, ErrNoCandidates
}

func decodeArray(s string) ([]contracts.SignalCandidate, bool) {
	var cands []contracts.SignalCandidate
	if err := json.Unmarshal([]byte(s), &cands); err != nil {
		return nil, false
	}
	return cands, true
}

// normalize repairs the casing and range drift models produce and drops
// candidates with nothing to act on.
func normalize(in []contracts.SignalCandidate) []contracts.SignalCandidate {
	out := make([]contracts.SignalCandidate, 0, len(in))
	for _, c := range in {
		if c.SignalType == "" && len(c.Instruments) == 0 {
			continue
		}
		c.Direction = contracts.Direction(strings.ToUpper(string(c.Direction)))
		c.TimeHorizon = contracts.TimeHorizon(strings.ToUpper(string(c.TimeHorizon)))
		for i := range c.Instruments {
			c.Instruments[i].Symbol = strings.ToUpper(strings.TrimSpace(c.Instruments[i].Symbol))
			c.Instruments[i].Direction = contracts.Direction(strings.ToUpper(string(c.Instruments[i].Direction)))
		}
		if c.Conviction < 0 {
			c.Conviction = 0
		}
		if c.Conviction > 1 {
			c.Conviction = 1
		}
		if c.ExpiresInHours <= 0 {
			c.ExpiresInHours = 24
		}
		out = append(out, c)
	}
	return out
}
