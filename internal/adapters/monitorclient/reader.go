package monitorclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// reportLine is one line of the report feed, e.g.
//
//	{"observed_at":"2026-01-02T15:04:05Z","timed_out":{"/google.com":12}}
type reportLine struct {
	ObservedAt time.Time              `json:"observed_at"`
	TimedOut   map[string]json.Number `json:"timed_out"`
}

// ParseLine decodes one feed line into a report for id. Negative or
// fractional counts are rejected.
func ParseLine(id domain.MonitorID, line []byte, now time.Time) (domain.Report, error) {
	var rl reportLine
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&rl); err != nil {
		return domain.Report{}, err
	}
	counts := make(map[domain.Name]uint32, len(rl.TimedOut))
	for name, raw := range rl.TimedOut {
		n, err := parseCount(raw)
		if err != nil {
			return domain.Report{}, fmt.Errorf("name %s: %w", name, err)
		}
		counts[domain.Name(name)] = n
	}
	observed := rl.ObservedAt
	if observed.IsZero() {
		observed = now
	}
	return domain.NewReport(id, counts, observed), nil
}

func parseCount(raw json.Number) (uint32, error) {
	v, err := raw.Int64()
	if err != nil {
		return 0, fmt.Errorf("count %q is not an integer", raw.String())
	}
	if v < 0 || v > int64(^uint32(0)) {
		return 0, fmt.Errorf("count %d out of range", v)
	}
	return uint32(v), nil
}

// FeedError is a line of the feed that could not be parsed.
type FeedError struct {
	Line int
	Err  error
}

func (e *FeedError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *FeedError) Unwrap() error { return e.Err }

// ReadFeed parses newline-delimited reports from r and calls fn for each.
// Blank lines are skipped; bad lines go to onError and reading continues.
func ReadFeed(ctx context.Context, r io.Reader, id domain.MonitorID, fn func(domain.Report) error, onError func(error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		report, err := ParseLine(id, []byte(line), time.Now())
		if err != nil {
			if onError != nil {
				onError(&FeedError{Line: lineNo, Err: err})
			}
			continue
		}
		if err := fn(report); err != nil {
			return err
		}
	}
	return scanner.Err()
}
