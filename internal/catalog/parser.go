package catalog

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads repeating 3-line element groups (name, "1 ..." line, "2 ..."
// line) from r. Malformed groups are skipped with a warning log rather than
// failing the whole feed; only a read error is fatal.
func Parse(r io.Reader, logger *slog.Logger) ([]Element, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog data: %w", err)
	}

	var elements []Element
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		// The element lines must carry their literal markers.
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			logger.Warn("skipping malformed catalog group", "line_index", i, "name", name)
			i++
			continue
		}

		// NORAD ID from line1 cols 3-7 (0-indexed 2..7).
		if len(line1) < 32 {
			logger.Warn("skipping catalog group with short line1", "name", name)
			i += 3
			continue
		}
		noradID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
		if err != nil {
			logger.Warn("skipping catalog group with invalid NORAD ID", "norad_str", line1[2:7], "name", name)
			i += 3
			continue
		}

		// Epoch from line1 cols 19-32 (0-indexed 18..32), YYDDD.DDDDDDDD.
		epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
		if err != nil {
			logger.Warn("skipping catalog group with invalid epoch", "name", name, "error", err)
			i += 3
			continue
		}

		elements = append(elements, Element{
			Name:    strings.TrimSpace(name),
			NORADID: noradID,
			Epoch:   epoch,
			Line1:   line1,
			Line2:   line2,
		})
		i += 3
	}

	return elements, nil
}

// parseEpoch converts an element epoch in YYDDD.DDDDDDDD format to time.Time.
// Two-digit years 00-56 map to the 2000s, 57-99 to the 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", s[2:], err)
	}

	// Day of year is 1-based: day 1.0 is midnight Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
