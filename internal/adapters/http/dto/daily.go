package dto

import (
	"github.com/jsamuelsen/esoteric-daily/internal/app"
	"github.com/jsamuelsen/esoteric-daily/internal/domain"
)

// WisdomResponse is the base content of a day.
type WisdomResponse struct {
	Quote               string `json:"quote"`
	Source              string `json:"source"`
	Topic               string `json:"topic"`
	BriefInterpretation string `json:"briefInterpretation"`
}

// RecordResponse is a persisted daily record.
type RecordResponse struct {
	Date            string         `json:"date"`
	Wisdom          WisdomResponse `json:"wisdom"`
	ImageURL        string         `json:"imageUrl,omitempty"`
	FullExplanation string         `json:"fullExplanation,omitempty"`
}

// FieldState reports one derived field's status and last error.
type FieldState struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// DailyResponse is the workflow state for one date.
type DailyResponse struct {
	Date         string          `json:"date"`
	Phase        string          `json:"phase"`
	Error        string          `json:"error,omitempty"`
	Record       *RecordResponse `json:"record,omitempty"`
	Explanation  FieldState      `json:"explanation"`
	Illustration FieldState      `json:"illustration"`
}

// HistoryResponse lists recent records, newest first.
type HistoryResponse struct {
	Items []*RecordResponse `json:"items"`
	Count int               `json:"count"`
}

// DateQuery selects a date for explanation and illustration requests.
// An empty date means today.
type DateQuery struct {
	Date string `form:"date" json:"date" validate:"omitempty,datekey"`
}

// HistoryQuery bounds the history listing.
type HistoryQuery struct {
	Limit int `form:"limit" json:"limit" validate:"omitempty,gte=1,lte=366"`
}

// ToRecordResponse converts a domain record. A nil record yields nil.
func ToRecordResponse(rec *domain.DailyRecord) *RecordResponse {
	if rec == nil {
		return nil
	}

	return &RecordResponse{
		Date: rec.Date,
		Wisdom: WisdomResponse{
			Quote:               rec.Wisdom.Quote,
			Source:              rec.Wisdom.Source,
			Topic:               rec.Wisdom.Topic,
			BriefInterpretation: rec.Wisdom.BriefInterpretation,
		},
		ImageURL:        rec.ImageURL,
		FullExplanation: rec.Explanation,
	}
}

// ToDailyResponse converts a workflow snapshot.
func ToDailyResponse(s *app.Snapshot) *DailyResponse {
	return &DailyResponse{
		Date:         s.Date,
		Phase:        string(s.Phase),
		Error:        s.BaseError,
		Record:       ToRecordResponse(s.Record),
		Explanation:  FieldState{Status: string(s.Explanation), Error: s.ExplanationError},
		Illustration: FieldState{Status: string(s.Illustration), Error: s.IllustrationError},
	}
}

// ToHistoryResponse converts a list of records.
func ToHistoryResponse(records []*domain.DailyRecord) *HistoryResponse {
	items := make([]*RecordResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, ToRecordResponse(rec))
	}

	return &HistoryResponse{Items: items, Count: len(items)}
}
