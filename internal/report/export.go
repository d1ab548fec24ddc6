package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrNoAttempts means the session has nothing to export.
var ErrNoAttempts = errors.New("session has no recorded attempts")

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv", case-insensitively. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ContentType is the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Filename is the suggested download name for a session export.
func (f Format) Filename(sessionID string) string {
	return fmt.Sprintf("session_%s_metrics.%s", sessionID, f)
}

// Export writes r in format f. Sessions with no hits or misses are refused.
func Export(w io.Writer, r *Report, f Format) error {
	if r.Total() < 1 {
		return ErrNoAttempts
	}
	switch f {
	case FormatCSV:
		return WriteCSV(w, r)
	default:
		return WriteJSON(w, r)
	}
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes r as titled CSV sections separated by blank lines.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	s := r.Session

	section := func(title string, header ...string) {
		cw.Flush()
		fmt.Fprintf(w, "=== %s ===\n", title)
		cw.Write(header)
	}
	f2 := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	pct := func(v float64) string { return strconv.FormatFloat(v*100, 'f', 1, 64) + "%" }
	itoa := strconv.Itoa

	section("SESSION SUMMARY", "Metric", "Value")
	cw.WriteAll([][]string{
		{"Session ID", s.ID},
		{"Learner", r.LearnerName},
		{"Started", s.StartedAt.UTC().Format(time.RFC3339)},
		{"Duration (s)", f2(s.DurationSecs)},
		{"Hits", itoa(s.Hits)},
		{"Misses", itoa(s.Misses)},
		{"Hit rate", pct(r.HitRate)},
		{"Average latency (s)", f2(s.AvgLatency)},
		{"Initial tier", s.InitialTier.DisplayName()},
		{"Final tier", s.FinalTier.DisplayName()},
	})
	fmt.Fprintln(w)

	section("ERRORS BY CATEGORY", "Category", "Count", "Signals")
	for _, c := range r.Categories {
		cw.Write([]string{c.Category, itoa(c.Count), strings.Join(c.Signals, ", ")})
	}
	cw.Flush()
	fmt.Fprintln(w)

	section("PERFORMANCE BY SIGNAL", "Signal", "Mean latency", "Hits", "Misses")
	for _, sig := range r.Signals {
		cw.Write([]string{sig.Signal, f2(sig.MeanLatency), itoa(sig.Hits), itoa(sig.Misses)})
	}
	cw.Flush()
	fmt.Fprintln(w)

	section("DIFFICULTY ADJUSTMENTS", "From", "To", "Justification", "Hit rate", "Zone", "Round")
	for _, a := range r.Adjustments {
		cw.Write([]string{
			a.PreviousTier.DisplayName(), a.NewTier.DisplayName(), a.Justification,
			pct(a.HitRate), itoa(a.Zone), itoa(a.Round),
		})
	}
	cw.Flush()
	fmt.Fprintln(w)

	section("ATTEMPTS", "Signal", "Answer", "Correct", "Latency (s)", "Zone", "Round", "Tier")
	for _, a := range r.Attempts {
		answer := "No answer"
		if a.Answer != nil {
			answer = *a.Answer
		}
		cw.Write([]string{
			a.SignalName, answer, yesNo(a.Correct), f2(a.Latency),
			itoa(a.Zone), itoa(a.Round), a.Tier.DisplayName(),
		})
	}
	cw.Flush()
	return cw.Error()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
