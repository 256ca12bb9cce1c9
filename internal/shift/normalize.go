package shift

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04Z0700",
}

// Zone-less layouts are read in Options.Location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp reads ISO-8601 date-times with or without a zone (minute
// or second precision, offsets with or without a colon) and unix epoch
// values (seconds, or milliseconds past 1e11). Instants before the unix
// epoch are rejected.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	t, ok := parseInstant(s, loc)
	if !ok || t.Before(time.Unix(0, 0)) {
		return time.Time{}, false
	}
	return t, true
}

func parseInstant(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		if n > 1e11 {
			return time.UnixMilli(n).In(loc), true
		}
		return time.Unix(n, 0).In(loc), true
	}

	return time.Time{}, false
}

// rawString renders a decoded JSON scalar as text. Objects, arrays and
// booleans yield "".
func rawString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

func parseAction(s string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionIn:
		return ActionIn, true
	case ActionOut:
		return ActionOut, true
	}
	return "", false
}

// parseCoordinate converts v to a float within [-limit, limit], or nil.
func parseCoordinate(v any, limit float64) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case *float64:
		if n == nil {
			return nil
		}
		f = *n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > limit {
		return nil
	}
	return &f
}

// Normalize validates raw events and coerces them into NormalizedEvent.
// Events without a user id, with an unknown action or with an unreadable
// timestamp are logged, counted and skipped. Output keeps input order.
func Normalize(raw []RawEvent, opts Options) ([]NormalizedEvent, Diagnostics) {
	log := opts.logger()
	loc := opts.location()

	var diag Diagnostics
	events := make([]NormalizedEvent, 0, len(raw))

	for i, ev := range raw {
		fields := logrus.Fields{
			"index":     i,
			"event_id":  ev.ID,
			"user_id":   ev.UserID,
			"timestamp": ev.Timestamp,
		}

		userID := strings.TrimSpace(rawString(ev.UserID))
		if userID == "" {
			diag.MissingUser++
			log.WithFields(fields).Warn("Dropping clock event without user id")
			continue
		}

		action, ok := parseAction(rawString(ev.Action))
		if !ok {
			diag.BadAction++
			log.WithFields(fields).WithField("action", ev.Action).Warn("Dropping clock event with unknown action")
			continue
		}

		ts, ok := ParseTimestamp(rawString(ev.Timestamp), loc)
		if !ok {
			diag.BadTimestamp++
			log.WithFields(fields).Warn("Dropping clock event with unparseable timestamp")
			continue
		}

		lat := parseCoordinate(ev.Latitude, 90)
		lon := parseCoordinate(ev.Longitude, 180)
		if (ev.Latitude != nil && lat == nil) || (ev.Longitude != nil && lon == nil) {
			log.WithFields(fields).Debug("Ignoring invalid coordinates")
		}

		events = append(events, NormalizedEvent{
			ID:         ev.ID,
			UserID:     userID,
			Action:     action,
			Timestamp:  ts,
			Location:   strings.TrimSpace(ev.Location),
			Latitude:   lat,
			Longitude:  lon,
			IsLeaveDay: ev.IsLeaveDay,
			Comment:    strings.TrimSpace(ev.Comment),
			Seq:        i,
		})
	}

	return events, diag
}
