package parser

import "time"

// TimestampPattern is one timestamp layout a grammar may emit.
type TimestampPattern struct {
	Layout  string
	HasYear bool
	HasZone bool
}

// Normalizer turns format-specific timestamp substrings into canonical
// absolute instants, resolving missing year and timezone information
// from configured defaults.
type Normalizer struct {
	// DefaultYear is substituted when a pattern carries no year.
	DefaultYear int
	// DefaultLocation resolves timestamps with no zone. Never nil after
	// NewNormalizer.
	DefaultLocation *time.Location
}

// NewNormalizer builds a Normalizer. A zero year means the year current
// at construction time; a nil location means UTC.
func NewNormalizer(defaultYear int, loc *time.Location) *Normalizer {
	if defaultYear == 0 {
		defaultYear = time.Now().Year()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{DefaultYear: defaultYear, DefaultLocation: loc}
}

// Normalize attempts the patterns in order and returns the first
// successful parse. A false return means the record keeps no timestamp;
// it is not an error.
func (n *Normalizer) Normalize(raw string, patterns []TimestampPattern) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	if ts, ok := fastDashTimestamp(raw, n.DefaultLocation); ok {
		return ts, true
	}

	for _, p := range patterns {
		var (
			ts  time.Time
			err error
		)
		if p.HasZone {
			ts, err = time.Parse(p.Layout, raw)
		} else {
			ts, err = time.ParseInLocation(p.Layout, raw, n.DefaultLocation)
		}
		if err != nil {
			continue
		}
		if !p.HasYear {
			ts = time.Date(n.DefaultYear, ts.Month(), ts.Day(),
				ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), ts.Location())
		}
		return ts, true
	}

	return time.Time{}, false
}

// fastDashTimestamp hand-parses the dominant "YYYY-MM-DD HH:MM:SS(.fff)"
// shape (space or 'T' separator, no zone suffix). Roughly 5x faster than
// time.Parse; anything else falls through to the layout list.
func fastDashTimestamp(ts string, loc *time.Location) (time.Time, bool) {
	if len(ts) < 19 || ts[4] != '-' || ts[7] != '-' {
		return time.Time{}, false
	}
	if sep := ts[10]; sep != ' ' && sep != 'T' {
		return time.Time{}, false
	}
	// Zone suffixes are left to time.Parse.
	if len(ts) > 19 && ts[19] != '.' {
		return time.Time{}, false
	}

	year := parseInt4(ts[0:4])
	month := parseInt2(ts[5:7])
	day := parseInt2(ts[8:10])
	hour := parseInt2(ts[11:13])
	min := parseInt2(ts[14:16])
	sec := parseInt2(ts[17:19])

	if year < 0 || month < 1 || month > 12 || day < 1 || day > 31 ||
		hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return time.Time{}, false
	}

	var nsec int
	if len(ts) > 20 && ts[19] == '.' {
		frac := ts[20:]
		n := len(frac)
		if n > 9 {
			frac = frac[:9]
			n = 9
		}
		v, ok := parseIntN(frac)
		if !ok {
			return time.Time{}, false
		}
		nsec = v
		for i := n; i < 9; i++ {
			nsec *= 10
		}
	}

	return time.Date(year, time.Month(month), day, hour, min, sec, nsec, loc), true
}

// parseInt2 parses a 2-digit decimal string. Returns -1 on error.
func parseInt2(s string) int {
	if len(s) != 2 {
		return -1
	}
	d1, d2 := s[0]-'0', s[1]-'0'
	if d1 > 9 || d2 > 9 {
		return -1
	}
	return int(d1)*10 + int(d2)
}

// parseInt4 parses a 4-digit decimal string. Returns -1 on error.
func parseInt4(s string) int {
	if len(s) != 4 {
		return -1
	}
	d1, d2, d3, d4 := s[0]-'0', s[1]-'0', s[2]-'0', s[3]-'0'
	if d1 > 9 || d2 > 9 || d3 > 9 || d4 > 9 {
		return -1
	}
	return int(d1)*1000 + int(d2)*100 + int(d3)*10 + int(d4)
}

func parseIntN(s string) (int, bool) {
	result := 0
	for i := 0; i < len(s); i++ {
		d := s[i] - '0'
		if d > 9 {
			return 0, false
		}
		result = result*10 + int(d)
	}
	return result, true
}
