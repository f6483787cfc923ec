package models

import "time"

// AnalysisRecord is the append-only log row written once per analyzed message.
type AnalysisRecord struct {
	ID        int64     `db:"id"`
	Sender    string    `db:"sender"`
	Content   string    `db:"content"`
	RiskScore int       `db:"risk_score"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

type AlertLevel string

const (
	AlertLevelSafe   AlertLevel = "safe"
	AlertLevelMedium AlertLevel = "medium"
	AlertLevelHigh   AlertLevel = "high"
)

// AlertLevelFor buckets a risk score the same way the mobile client does.
func AlertLevelFor(riskScore int) AlertLevel {
	switch {
	case riskScore < 30:
		return AlertLevelSafe
	case riskScore < 90:
		return AlertLevelMedium
	default:
		return AlertLevelHigh
	}
}
