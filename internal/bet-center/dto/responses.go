package dto

type MarketResponse struct {
	Address         string `json:"address"`
	Dealer          string `json:"dealer"`
	Admin           string `json:"admin"`
	Category        string `json:"category"`
	ExternalEventID string `json:"external_event_id"`
	MinimumStake    string `json:"minimum_stake"`
	Handicap        int32  `json:"handicap"`
	LeftOdds        uint64 `json:"left_odds"`
	MiddleOdds      uint64 `json:"middle_odds"`
	RightOdds       uint64 `json:"right_odds"`
	Format          uint8  `json:"format"`
	StartTime       int64  `json:"start_time"`
	Duration        int64  `json:"duration"`

	Status          string            `json:"status"` // OPEN | CLOSING | CLOSED
	Deposit         string            `json:"deposit"`
	TotalStaked     string            `json:"total_staked"`
	StakedByOutcome map[string]string `json:"staked_by_outcome"`
	Balance         string            `json:"balance"`
	PaidOut         string            `json:"paid_out"`
	LeftPoints      uint32            `json:"left_points"`
	RightPoints     uint32            `json:"right_points"`
	WinningOutcome  uint8             `json:"winning_outcome"` // 0 enquanto aberto
	Players         int               `json:"players"`
	Settled         int               `json:"settled"`
	FailedPayouts   int               `json:"failed_payouts"`
}

type CategoryMarketsResponse struct {
	Category string   `json:"category"`
	Markets  []string `json:"markets"`
}

type PlayersResponse struct {
	Market  string   `json:"market"`
	Players []string `json:"players"`
}

type PlayerInfoResponse struct {
	Market  string `json:"market"`
	Player  string `json:"player"`
	Amount  string `json:"amount"`
	Outcome uint8  `json:"outcome"`
}

type WagerResponse struct {
	Market      string `json:"market"`
	Participant string `json:"participant"`
	Outcome     uint8  `json:"outcome"`
	Amount      string `json:"amount"`
	TotalStaked string `json:"total_staked"`
}

type DepositResponse struct {
	Market  string `json:"market"`
	Deposit string `json:"deposit"`
}

type SettlementResponse struct {
	Market         string `json:"market"`
	Status         string `json:"status"`
	WinningOutcome uint8  `json:"winning_outcome"`
	Paid           int    `json:"paid"`
	Failed         int    `json:"failed"`
	Remaining      int    `json:"remaining"`
	Done           bool   `json:"done"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
