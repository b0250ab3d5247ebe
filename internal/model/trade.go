package model

import "time"

// Trade is a closed position.
type Trade struct {
	Symbol     string
	Interval   string
	Direction  Direction
	EntryIndex int
	EntryTime  time.Time
	EntryPrice float64
	ExitIndex  int
	ExitTime   time.Time
	ExitPrice  float64
	Profit     float64
	Reason     string
}

// Summary aggregates a set of trades.
type Summary struct {
	Count       int
	Wins        int
	Losses      int
	WinRate     float64
	TotalProfit float64
}
