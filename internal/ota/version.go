package ota

import (
	"strconv"
	"strings"
)

// RemoteIsNewer compares dotted version strings component-wise as integer
// tuples, zero-padding the shorter one. Malformed versions compare as not
// newer, so a bad manifest can never trigger an auto-update.
func RemoteIsNewer(local, remote string) bool {
	lp, err := parseVersion(local)
	if err != nil {
		return false
	}
	rp, err := parseVersion(remote)
	if err != nil {
		return false
	}

	for len(lp) < len(rp) {
		lp = append(lp, 0)
	}
	for len(rp) < len(lp) {
		rp = append(rp, 0)
	}

	for i := range lp {
		if rp[i] != lp[i] {
			return rp[i] > lp[i]
		}
	}
	return false
}

func parseVersion(v string) ([]int, error) {
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
