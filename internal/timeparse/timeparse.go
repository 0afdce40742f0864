// Package timeparse turns natural-language time expressions into epoch
// windows. The grammar covers relative spans ("last 2 weeks"), named
// days, current periods, calendar months, and explicit dates; queries
// without any expression fall back to intent-specific defaults.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Default window spans, in days.
const (
	DefaultWindowDays = 14
	AllTimeDays       = 1825
	AuthorWindowDays  = 90
	RiskWindowDays    = 730
)

// Window is an inclusive epoch-second range.
type Window struct {
	Start int64
	End   int64
}

var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\blast\b`),
	regexp.MustCompile(`\byesterday\b`),
	regexp.MustCompile(`\btoday\b`),
	regexp.MustCompile(`\bthis week\b`),
	regexp.MustCompile(`\bthis month\b`),
	regexp.MustCompile(`\bthis year\b`),
	regexp.MustCompile(`\bin\b`),
	regexp.MustCompile(`\bduring\b`),
	regexp.MustCompile(`\bsince\b`),
	regexp.MustCompile(`\bfrom\b`),
	regexp.MustCompile(`\bto\b`),
	regexp.MustCompile(`\bbetween\b`),
	regexp.MustCompile(`\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\b`),
	regexp.MustCompile(`\b(?:jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\b`),
}

// Expression patterns, first match wins.
var expressionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`last\s+(\d+)\s+(day|week|month|year)s?`),
	regexp.MustCompile(`last\s+(one|two|three|four|five|six|seven|eight|nine|ten)\s+(day|week|month|year)s?`),
	regexp.MustCompile(`last\s+(day|week|month|year)`),
	regexp.MustCompile(`yesterday`),
	regexp.MustCompile(`today`),
	regexp.MustCompile(`this\s+(week|month|year)`),
	regexp.MustCompile(`in\s+(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{4}`),
	regexp.MustCompile(`in\s+(jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\s+\d{4}`),
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`),
	regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),
}

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var monthNumbers = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November,
	"dec": time.December,
}

var lastNDigitsRe = regexp.MustCompile(`last\s+(\d+)\s+(day|week|month|year)s?`)
var lastNWordsRe = regexp.MustCompile(`last\s+(one|two|three|four|five|six|seven|eight|nine|ten)\s+(day|week|month|year)s?`)
var lastBareRe = regexp.MustCompile(`last\s+(day|week|month|year)s?`)
var monthYearRe = regexp.MustCompile(`in\s+(\w+)\s+(\d{4})`)
var slashDateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
var isoDateRe = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)

// Parse resolves the time window for query, defaulting to the wide
// all-time window when no expression is present.
func Parse(query string) Window {
	return ParseAt(query, time.Now())
}

// ParseAt is Parse with an injectable clock.
func ParseAt(query string, now time.Time) Window {
	lower := strings.ToLower(query)
	if HasTimeExpression(lower) {
		if expr := ExtractTimeExpression(lower); expr != "" {
			start, end := parseExpression(expr, now)
			return Window{Start: start.Unix(), End: end.Unix()}
		}
	}
	return AllTimeWindowAt(now)
}

// HasTimeExpression reports whether query contains any time keyword.
func HasTimeExpression(query string) bool {
	lower := strings.ToLower(query)
	for _, re := range keywordPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// ExtractTimeExpression returns the first recognized time expression in
// query, or "".
func ExtractTimeExpression(query string) string {
	for _, re := range expressionPatterns {
		if match := re.FindString(query); match != "" {
			return match
		}
	}
	return ""
}

func parseExpression(expr string, now time.Time) (time.Time, time.Time) {
	expr = strings.ToLower(expr)

	switch {
	case strings.HasPrefix(expr, "last"):
		return parseLast(expr, now)
	case expr == "yesterday":
		y := now.AddDate(0, 0, -1)
		return dayStart(y), dayEnd(y)
	case expr == "today":
		return dayStart(now), dayEnd(now)
	case strings.HasPrefix(expr, "this"):
		return parseThis(expr, now)
	case strings.HasPrefix(expr, "in"):
		return parseMonthYear(expr, now)
	case strings.Contains(expr, "/") || strings.Contains(expr, "-"):
		return parseDate(expr, now)
	}
	return defaultWindow(now)
}

// parseLast handles "last N unit", "last <word> unit", and the bare
// "last unit". A month subtracts 30 days, a year 365.
func parseLast(expr string, now time.Time) (time.Time, time.Time) {
	var number int
	var unit string

	if m := lastNDigitsRe.FindStringSubmatch(expr); m != nil {
		number, _ = strconv.Atoi(m[1])
		unit = m[2]
	} else if m := lastNWordsRe.FindStringSubmatch(expr); m != nil {
		number = wordNumbers[m[1]]
		unit = m[2]
	} else if m := lastBareRe.FindStringSubmatch(expr); m != nil {
		number = 1
		unit = m[1]
	} else {
		return defaultWindow(now)
	}

	var start time.Time
	switch unit {
	case "day":
		start = now.AddDate(0, 0, -number)
	case "week":
		start = now.AddDate(0, 0, -number*7)
	case "month":
		start = now.AddDate(0, 0, -number*30)
	case "year":
		start = now.AddDate(0, 0, -number*365)
	default:
		return defaultWindow(now)
	}
	return start, now
}

// parseThis handles "this week|month|year". Weeks start Monday.
func parseThis(expr string, now time.Time) (time.Time, time.Time) {
	switch {
	case strings.Contains(expr, "week"):
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		return dayStart(now.AddDate(0, 0, -daysSinceMonday)), now
	case strings.Contains(expr, "month"):
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	case strings.Contains(expr, "year"):
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), now
	}
	return defaultWindow(now)
}

// parseMonthYear handles "in <Month> <YYYY>" with calendar-aware month
// bounds.
func parseMonthYear(expr string, now time.Time) (time.Time, time.Time) {
	m := monthYearRe.FindStringSubmatch(expr)
	if m == nil {
		return defaultWindow(now)
	}
	month, ok := monthNumbers[m[1]]
	if !ok {
		return defaultWindow(now)
	}
	year, _ := strconv.Atoi(m[2])

	start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

func parseDate(expr string, now time.Time) (time.Time, time.Time) {
	if m := slashDateRe.FindStringSubmatch(expr); m != nil {
		month, _ := strconv.Atoi(m[1])
		dayNum, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		start := time.Date(year, time.Month(month), dayNum, 0, 0, 0, 0, now.Location())
		return start, dayEnd(start)
	}
	if m := isoDateRe.FindStringSubmatch(expr); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		dayNum, _ := strconv.Atoi(m[3])
		start := time.Date(year, time.Month(month), dayNum, 0, 0, 0, 0, now.Location())
		return start, dayEnd(start)
	}
	return defaultWindow(now)
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

func defaultWindow(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -DefaultWindowDays), now
}

// AllTimeWindow is the wide default used when a query has no time
// expression: five years ending now.
func AllTimeWindow() Window {
	return AllTimeWindowAt(time.Now())
}

// AllTimeWindowAt is AllTimeWindow with an injectable clock.
func AllTimeWindowAt(now time.Time) Window {
	return Window{Start: now.AddDate(0, 0, -AllTimeDays).Unix(), End: now.Unix()}
}

var authorQueryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`changes?\s+(made|done)\s+by\s+[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`prs?\s+(by|from)\s+[a-zA-Z0-9_-]+`),
	regexp.MustCompile(`[a-zA-Z0-9_-]+\s+(prs?|changes?|commits?)`),
	regexp.MustCompile(`what\s+did\s+[a-zA-Z0-9_-]+\s+do`),
}

// IsAuthorQuery reports whether query asks about a specific author.
func IsAuthorQuery(query string) bool {
	for _, re := range authorQueryPatterns {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}

// AuthorWindowAt is the author-query default: last 90 days.
func AuthorWindowAt(now time.Time) Window {
	return Window{Start: now.AddDate(0, 0, -AuthorWindowDays).Unix(), End: now.Unix()}
}

var riskQueryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(riskiest|most\s+risky|high\s+risk)\b`),
	regexp.MustCompile(`\b(risk|vulnerability|security)\b`),
	regexp.MustCompile(`\b(dangerous|critical|sensitive)\b`),
}

// IsRiskQuery reports whether query asks about risk.
func IsRiskQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, re := range riskQueryPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// RiskWindowAt is the risk-query default: last two years.
func RiskWindowAt(now time.Time) Window {
	return Window{Start: now.AddDate(0, 0, -RiskWindowDays).Unix(), End: now.Unix()}
}
