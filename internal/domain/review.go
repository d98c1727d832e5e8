package domain

import (
	"fmt"
	"time"
)

// UnknownVersion replaces absent appVersion / reviewCreatedVersion values.
const UnknownVersion = "unknown"

// Column is a pass-through cell from the export that the pipeline does not interpret.
type Column struct {
	Name  string
	Value string
}

// RawReview is one row of a store export. Nil pointers are null cells.
type RawReview struct {
	Line                 int
	ReviewID             string
	UserName             *string
	UserImage            *string
	Content              *string
	Score                *float64
	ThumbsUpCount        *string
	ReviewCreatedVersion *string
	At                   string
	ReplyContent         *string
	RepliedAt            *string
	AppVersion           *string
	Extra                []Column
}

type CanonicalReview struct {
	Source               SourceTag
	ReviewID             string
	UserName             *string
	Content              string
	Score                float64
	ThumbsUpCount        *string
	ReviewCreatedVersion string
	AppVersion           string
	At                   Timestamp
	Emojis               []string
	Extra                []Column
}

type EnrichedReview struct {
	CanonicalReview
	TextSentiment  SentimentLabel
	SentimentScore *float64
	EmojiSentiment SentimentLabel
}

type TimeStatus string

const (
	TimeParsed   TimeStatus = "parsed"
	TimeMissing  TimeStatus = "missing"
	TimeUnparsed TimeStatus = "unparsed"
)

// Timestamp keeps the raw value next to the parse outcome so a missing or
// malformed value is never confused with a real (even zero) date.
type Timestamp struct {
	Raw    string
	Time   time.Time
	Status TimeStatus
}

func (t Timestamp) Valid() bool { return t.Status == TimeParsed }

func (t Timestamp) Bucket() (Month, bool) {
	if !t.Valid() {
		return Month{}, false
	}
	return MonthOf(t.Time), true
}

// Month is the (year, month) time bucket.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) Month { return Month{Year: t.Year(), Month: t.Month()} }

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: month %q", ErrInvalidArgument, s)
	}
	return MonthOf(t), nil
}

// CleanStats describes what the cleaner did with one export.
type CleanStats struct {
	Input          int `json:"input"`
	MissingContent int `json:"missing_content"`
	MissingScore   int `json:"missing_score"`
	Duplicates     int `json:"duplicates"`
	MissingTime    int `json:"missing_time"`
	UnparsedTime   int `json:"unparsed_time"`
	Output         int `json:"output"`
}
