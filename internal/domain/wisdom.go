package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used as the record key.
const DateLayout = "2006-01-02"

// WisdomEntry is the base daily content produced by the text provider.
// It has no knowledge of where it came from or where it is stored.
type WisdomEntry struct {
	// Quote is the wisdom text itself.
	Quote string

	// Source is the text or tradition the quote is attributed to.
	Source string

	// Topic is a short label such as "Hermeticism" or "Stoicism".
	Topic string

	// BriefInterpretation is a one or two sentence gloss shown with the quote.
	BriefInterpretation string
}

// Validate checks that every field is non-empty.
func (w WisdomEntry) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"quote", w.Quote},
		{"source", w.Source},
		{"topic", w.Topic},
		{"briefInterpretation", w.BriefInterpretation},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return NewValidationError("wisdom."+f.name, "must not be empty")
		}
	}

	return nil
}

// DailyRecord is the persisted unit of the cache: one per calendar date.
// Wisdom is set at creation; ImageURL and Explanation start empty and are
// filled at most once.
type DailyRecord struct {
	Date        string
	Wisdom      WisdomEntry
	ImageURL    string
	Explanation string
}

// NewDailyRecord creates a record holding only base content.
func NewDailyRecord(date string, wisdom WisdomEntry) *DailyRecord {
	return &DailyRecord{Date: date, Wisdom: wisdom}
}

// Validate checks the date key and the wisdom entry.
func (r *DailyRecord) Validate() error {
	if _, err := ParseDate(r.Date); err != nil {
		return err
	}

	return r.Wisdom.Validate()
}

// HasImage reports whether the illustration is set.
func (r *DailyRecord) HasImage() bool {
	return r.ImageURL != ""
}

// HasExplanation reports whether the explanation is set.
func (r *DailyRecord) HasExplanation() bool {
	return r.Explanation != ""
}

// Clone returns a copy that can be handed to callers without sharing state.
func (r *DailyRecord) Clone() *DailyRecord {
	if r == nil {
		return nil
	}

	c := *r

	return &c
}

// RecordPatch carries derived fields to merge into a record.
// Empty fields mean "no change".
type RecordPatch struct {
	ImageURL    string
	Explanation string
}

// IsEmpty reports whether the patch carries nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.ImageURL == "" && p.Explanation == ""
}

// Apply fills fields of r that are still empty from the patch and reports
// whether anything changed. Fields that are already set are never overwritten.
func (p RecordPatch) Apply(r *DailyRecord) bool {
	changed := false

	if p.ImageURL != "" && r.ImageURL == "" {
		r.ImageURL = p.ImageURL
		changed = true
	}

	if p.Explanation != "" && r.Explanation == "" {
		r.Explanation = p.Explanation
		changed = true
	}

	return changed
}

// DateKey formats t as a calendar date in t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD string and returns it normalized.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", NewValidationErrorWithValue("date", "must be formatted as YYYY-MM-DD", s)
	}

	return t.Format(DateLayout), nil
}
