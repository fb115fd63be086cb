package crawler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Target errors.
var (
	ErrNoTargets     = errors.New("no app ids given")
	ErrInvalidTarget = errors.New("invalid app id target")
)

// MaxTargets bounds how many ids one invocation may expand to.
const MaxTargets = 1_000_000

// ParseTargets expands app ids and start:end:step ranges into an ordered
// id list. Range ends are inclusive; step defaults to 1 and must be positive.
// Expansions beyond MaxTargets ids are rejected.
func ParseTargets(args []string) ([]int, error) {
	var ids []int

	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}

		if !strings.Contains(arg, ":") {
			id, err := parseID(arg)
			if err != nil {
				return nil, err
			}

			if len(ids) >= MaxTargets {
				return nil, fmt.Errorf("%w: more than %d ids", ErrInvalidTarget, MaxTargets)
			}

			ids = append(ids, id)

			continue
		}

		expanded, err := parseRange(arg, MaxTargets-len(ids))
		if err != nil {
			return nil, err
		}

		ids = append(ids, expanded...)
	}

	if len(ids) == 0 {
		return nil, ErrNoTargets
	}

	return ids, nil
}

func parseRange(arg string, limit int) ([]int, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("%w: %q (want start:end[:step])", ErrInvalidTarget, arg)
	}

	start, err := parseID(parts[0])
	if err != nil {
		return nil, err
	}

	end, err := parseID(parts[1])
	if err != nil {
		return nil, err
	}

	step := 1

	if len(parts) == 3 {
		step, err = strconv.Atoi(parts[2])
		if err != nil || step <= 0 {
			return nil, fmt.Errorf("%w: %q: step must be a positive integer", ErrInvalidTarget, arg)
		}
	}

	if end < start {
		return nil, fmt.Errorf("%w: %q: end before start", ErrInvalidTarget, arg)
	}

	// span+1 ids; kept as span so end-start near MaxInt cannot overflow.
	span := (end - start) / step
	if span >= limit {
		return nil, fmt.Errorf("%w: %q expands past %d ids", ErrInvalidTarget, arg, MaxTargets)
	}

	ids := make([]int, 0, span+1)
	for i := 0; i <= span; i++ {
		ids = append(ids, start+i*step)
	}

	return ids, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q is not an app id", ErrInvalidTarget, s)
	}

	return id, nil
}
