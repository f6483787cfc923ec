package models

import "time"

// Label is the dataset class of an SMS example. Values match the public
// Korean SMS dataset loaded into sms_dataset: 1 is benign, 2 is smishing.
type Label int

const (
	LabelBenign Label = 1
	LabelFraud  Label = 2
)

func (l Label) String() string {
	switch l {
	case LabelBenign:
		return "BENIGN"
	case LabelFraud:
		return "FRAUD"
	default:
		return "UNKNOWN"
	}
}

// Example is a labeled SMS body from the relational store. It is read-only
// for this service; the vector index keeps a denormalized copy.
type Example struct {
	ID        int64     `db:"id"`
	Content   string    `db:"content"`
	Label     Label     `db:"label"`
	CreatedAt time.Time `db:"created_at"`
}
