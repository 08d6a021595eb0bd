package models

import "time"

// MonthlySnapshot is the frozen view of a month's ledger stored by the scheduler.
type MonthlySnapshot struct {
	Month           time.Time `bson:"month" json:"month"`
	Income          string    `bson:"income" json:"income"`
	Expense         string    `bson:"expense" json:"expense"`
	Balance         string    `bson:"balance" json:"balance"`
	ProjectedCount  int       `bson:"projected_count" json:"projected_count"`
	RealCount       int       `bson:"real_count" json:"real_count"`
	ShiftCount      int       `bson:"shift_count" json:"shift_count"`
	NightShiftCount int       `bson:"night_shift_count" json:"night_shift_count"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}
