package models

import "time"

// UserSession is one stretch of activity by an authenticated user.
type UserSession struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastActivity time.Time `db:"last_activity" json:"last_activity"`
}

// VisitorStats compares distinct users with sessions this month against last month.
type VisitorStats struct {
	Total            int64   `json:"total"`
	PercentageChange float64 `json:"percentageChange"`
}

// SessionStats compares users active in the last 15 minutes against users
// active between two hours and one hour ago.
type SessionStats struct {
	Active           int64   `json:"active"`
	PercentageChange float64 `json:"percentageChange"`
}

// PercentageChange returns the relative change from previous to current in
// percent, rounded to one decimal. A zero baseline yields 0.
func PercentageChange(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	change := float64(current-previous) / float64(previous) * 100
	return float64(int64(change*10+sign(change)*0.5)) / 10
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
