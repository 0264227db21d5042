package models

// DailyStats is one day of a time series (sales count or revenue in cents).
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Total int64  `json:"total"`
}
