package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Retention is how long stored records are kept. INF keeps them forever.
type Retention time.Duration

func (r Retention) String() string {
	if r < 0 {
		return "Infinite"
	}
	return time.Duration(r).String()
}

const INF Retention = Retention(-1)

var retentionRE = regexp.MustCompile(`^(INF)$|^(?:(\d+)w)?(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?$`)

var retentionUnits = []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute}

func ParseRetention(s string) (Retention, error) {
	sm := retentionRE.FindStringSubmatch(s)
	if sm == nil {
		return Retention(0), fmt.Errorf("invalid (INF|wdhm) duration '%s'", s)
	}
	if sm[1] == "INF" {
		return INF, nil
	}
	var t time.Duration
	for i, unit := range retentionUnits {
		if sm[i+2] == "" {
			continue
		}
		n, err := strconv.Atoi(sm[i+2])
		if err != nil {
			return Retention(0), fmt.Errorf("invalid (INF|wdhm) duration '%s': %w", s, err)
		}
		t += time.Duration(n) * unit
	}
	return Retention(t), nil
}
