package bet_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bingozwb/bet-center/internal/bet"
	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	dealer = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	user1  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	user2  = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	user3  = common.HexToAddress("0x00000000000000000000000000000000000000a4")
	user4  = common.HexToAddress("0x00000000000000000000000000000000000000a5")
	market = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

// fakeTransfers registra pagamentos e falha para os endereços em fail
type fakeTransfers struct {
	paid map[common.Address]*big.Int
	fail map[common.Address]error
	n    int
}

func newFakeTransfers() *fakeTransfers {
	return &fakeTransfers{paid: map[common.Address]*big.Int{}, fail: map[common.Address]error{}}
}

func (f *fakeTransfers) Transfer(_ context.Context, from, to common.Address, amount *big.Int) error {
	f.n++
	if err, ok := f.fail[to]; ok {
		return err
	}
	if _, ok := f.paid[to]; !ok {
		f.paid[to] = new(big.Int)
	}
	f.paid[to].Add(f.paid[to], amount)
	return nil
}

func nbaOdds(format bet.Format) bet.OddsTable {
	return bet.OddsTable{
		Category:        "NBA",
		ExternalEventID: "0021701030",
		MinimumStake:    big.NewInt(5e16),
		Handicap:        0,
		Odds:            [3]uint64{250, 175, 120},
		Format:          format,
		StartTime:       1528988400,
		Duration:        3600 * 3,
	}
}

func newMarket(t *testing.T, tr bet.Transferer, batch int) *bet.Market {
	t.Helper()
	m, err := bet.New(bet.Config{
		Address:         market,
		Dealer:          dealer,
		Admin:           owner,
		Odds:            nbaOdds(bet.FormatThreeWay),
		Deposit:         big.NewInt(1e18),
		Transfers:       tr,
		PayoutBatchSize: batch,
	})
	if err != nil {
		t.Fatalf("new market: %v", err)
	}
	return m
}

func mustBet(t *testing.T, m *bet.Market, who common.Address, o bet.Outcome, amount int64) {
	t.Helper()
	if _, err := m.PlaceBet(who, o, big.NewInt(amount)); err != nil {
		t.Fatalf("place bet %s on %s: %v", who.Hex(), o, err)
	}
}

// assertSolvent verifica I1 para todos os resultados configurados
func assertSolvent(t *testing.T, m *bet.Market) {
	t.Helper()
	s := m.Snapshot()
	available := new(big.Int).Add(s.Deposit, s.TotalStaked)
	for o, staked := range s.StakedByOutcome {
		worst := s.Odds.Payout(o, staked)
		if worst.Cmp(available) > 0 {
			t.Fatalf("outcome %s owes %s > available %s", o, worst, available)
		}
	}
}

func TestConfigIsReadBack(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)
	odds := m.Odds()

	if odds.Category != "NBA" {
		t.Errorf("category = %q, want NBA", odds.Category)
	}
	if odds.MinimumStake.Cmp(big.NewInt(5e16)) != 0 {
		t.Errorf("minimum stake = %s, want 5e16", odds.MinimumStake)
	}
	if odds.Odds != [3]uint64{250, 175, 120} {
		t.Errorf("odds = %v", odds.Odds)
	}

	// mutar a cópia não pode alterar o mercado
	odds.MinimumStake.SetInt64(1)
	if m.Odds().MinimumStake.Cmp(big.NewInt(5e16)) != 0 {
		t.Fatal("minimum stake changed through accessor copy")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*bet.Config)
	}{
		{"zero odds", func(c *bet.Config) { c.Odds.Odds[1] = 0 }},
		{"zero minimum stake", func(c *bet.Config) { c.Odds.MinimumStake = big.NewInt(0) }},
		{"nil minimum stake", func(c *bet.Config) { c.Odds.MinimumStake = nil }},
		{"format 2", func(c *bet.Config) { c.Odds.Format = 2 }},
		{"format 0", func(c *bet.Config) { c.Odds.Format = 0 }},
		{"zero deposit", func(c *bet.Config) { c.Deposit = big.NewInt(0) }},
		{"no transferer", func(c *bet.Config) { c.Transfers = nil }},
		{"negative batch", func(c *bet.Config) { c.PayoutBatchSize = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := bet.Config{
				Address:   market,
				Dealer:    dealer,
				Admin:     owner,
				Odds:      nbaOdds(bet.FormatThreeWay),
				Deposit:   big.NewInt(1e18),
				Transfers: newFakeTransfers(),
			}
			tt.mutate(&cfg)
			if _, err := bet.New(cfg); !errors.Is(err, bet.ErrInvalidConfiguration) {
				t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestPlaceBetRejectsInsolventWager(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)

	// 1e18 * 2.50 = 2.5e18 > 1e18 + 1e18
	_, err := m.PlaceBet(user1, bet.OutcomeLeft, big.NewInt(1e18))
	if !errors.Is(err, bet.ErrInsufficientCollateral) {
		t.Fatalf("err = %v, want ErrInsufficientCollateral", err)
	}
	if m.TotalStaked().Sign() != 0 {
		t.Errorf("total staked = %s, want 0", m.TotalStaked())
	}
	if m.Deposit().Cmp(big.NewInt(1e18)) != 0 {
		t.Errorf("deposit = %s, want 1e18", m.Deposit())
	}
	if len(m.Roster()) != 0 {
		t.Errorf("roster = %v, want empty", m.Roster())
	}
	if _, ok := m.PlayerInfo(user1); ok {
		t.Error("rejected participant was recorded")
	}
}

func TestPlaceBetRecordsWager(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)

	r, err := m.PlaceBet(user2, bet.OutcomeMiddle, big.NewInt(1e17))
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if len(r.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(r.Events))
	}
	ev, ok := r.Events[0].(*events.WagerPlaced)
	if !ok {
		t.Fatalf("event type = %T", r.Events[0])
	}
	if ev.Participant != user2.Hex() || ev.Outcome != 2 || ev.Amount != "100000000000000000" {
		t.Errorf("event = %+v", ev)
	}

	if m.TotalStaked().Cmp(big.NewInt(1e17)) != 0 {
		t.Errorf("total staked = %s, want 1e17", m.TotalStaked())
	}
	pos, ok := m.PlayerInfo(user2)
	if !ok {
		t.Fatal("player not recorded")
	}
	if pos.Amount.Cmp(big.NewInt(1e17)) != 0 || pos.Outcome != bet.OutcomeMiddle {
		t.Errorf("player info = (%s, %s)", pos.Amount, pos.Outcome)
	}
}

func TestPlaceBetSequenceKeepsAccounting(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)

	// a aposta rejeitada não conta
	if _, err := m.PlaceBet(user1, bet.OutcomeLeft, big.NewInt(1e18)); err == nil {
		t.Fatal("expected rejection")
	}
	mustBet(t, m, user2, bet.OutcomeMiddle, 1e17)
	mustBet(t, m, user3, bet.OutcomeRight, 1e17)
	mustBet(t, m, user1, bet.OutcomeLeft, 1e17)
	mustBet(t, m, user4, bet.OutcomeLeft, 1e17)
	assertSolvent(t, m)

	if m.TotalStaked().Cmp(big.NewInt(4e17)) != 0 {
		t.Fatalf("total staked = %s, want 4e17", m.TotalStaked())
	}
	if m.StakedOn(bet.OutcomeLeft).Cmp(big.NewInt(2e17)) != 0 {
		t.Errorf("staked on left = %s, want 2e17", m.StakedOn(bet.OutcomeLeft))
	}
	want := []common.Address{user2, user3, user1, user4}
	got := m.Roster()
	if len(got) != len(want) {
		t.Fatalf("roster = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("roster[%d] = %s, want %s", i, got[i].Hex(), want[i].Hex())
		}
	}
}

func TestPlaceBetManyParticipantsStaysSolvent(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)
	accepted := new(big.Int)

	for i := 5; i < 100; i++ {
		who := common.BigToAddress(big.NewInt(int64(0x1000 + i)))
		// pesa a mão no resultado 1 para forçar rejeições
		o := bet.OutcomeLeft
		if i%4 == 0 {
			o = bet.Outcome(i%3 + 1)
		}
		before := m.Snapshot()
		_, err := m.PlaceBet(who, o, big.NewInt(4e17))
		switch {
		case err == nil:
			accepted.Add(accepted, big.NewInt(4e17))
		case errors.Is(err, bet.ErrInsufficientCollateral):
			after := m.Snapshot()
			if after.TotalStaked.Cmp(before.TotalStaked) != 0 || after.Players != before.Players {
				t.Fatalf("rejected wager changed state")
			}
		default:
			t.Fatalf("unexpected error: %v", err)
		}
		assertSolvent(t, m)
	}

	if m.TotalStaked().Cmp(accepted) != 0 {
		t.Fatalf("total staked = %s, want %s", m.TotalStaked(), accepted)
	}
}

func TestPlaceBetCheckOrder(t *testing.T) {
	twoWay, err := bet.New(bet.Config{
		Address:   market,
		Admin:     owner,
		Odds:      nbaOdds(bet.FormatTwoWay),
		Deposit:   big.NewInt(1e18),
		Transfers: newFakeTransfers(),
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		m       *bet.Market
		outcome bet.Outcome
		amount  *big.Int
		want    error
	}{
		{"below minimum beats invalid outcome", newMarket(t, newFakeTransfers(), 0), 0, big.NewInt(1), bet.ErrStakeTooSmall},
		{"nil amount", newMarket(t, newFakeTransfers(), 0), bet.OutcomeLeft, nil, bet.ErrStakeTooSmall},
		{"outcome zero", newMarket(t, newFakeTransfers(), 0), 0, big.NewInt(1e17), bet.ErrInvalidOutcome},
		{"outcome four", newMarket(t, newFakeTransfers(), 0), 4, big.NewInt(1e17), bet.ErrInvalidOutcome},
		{"invalid outcome beats insolvency", newMarket(t, newFakeTransfers(), 0), 4, new(big.Int).Mul(big.NewInt(1e18), big.NewInt(100)), bet.ErrInvalidOutcome},
		{"middle on two-way", twoWay, bet.OutcomeMiddle, big.NewInt(1e17), bet.ErrInvalidOutcome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.m.PlaceBet(user1, tt.outcome, tt.amount); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPlaceBetRejectsSecondWager(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)
	mustBet(t, m, user1, bet.OutcomeLeft, 1e17)

	_, err := m.PlaceBet(user1, bet.OutcomeRight, big.NewInt(1e17))
	if !errors.Is(err, bet.ErrAlreadyWagered) {
		t.Fatalf("err = %v, want ErrAlreadyWagered", err)
	}
	if m.TotalStaked().Cmp(big.NewInt(1e17)) != 0 {
		t.Errorf("total staked = %s", m.TotalStaked())
	}
	pos, _ := m.PlayerInfo(user1)
	if pos.Outcome != bet.OutcomeLeft {
		t.Errorf("outcome changed to %s", pos.Outcome)
	}
}

func TestRechargeDeposit(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)
	mustBet(t, m, user2, bet.OutcomeMiddle, 1e17)

	old := m.Deposit()
	r, err := m.RechargeDeposit(dealer, big.NewInt(1e17))
	if err != nil {
		t.Fatalf("recharge: %v", err)
	}
	want := new(big.Int).Add(old, big.NewInt(1e17))
	if m.Deposit().Cmp(want) != 0 {
		t.Errorf("deposit = %s, want %s", m.Deposit(), want)
	}
	if m.TotalStaked().Cmp(big.NewInt(1e17)) != 0 {
		t.Errorf("recharge touched total staked: %s", m.TotalStaked())
	}
	if ev, ok := r.Events[0].(*events.DepositRecharged); !ok || ev.Deposit != want.String() {
		t.Errorf("event = %+v", r.Events[0])
	}

	if _, err := m.RechargeDeposit(dealer, big.NewInt(0)); !errors.Is(err, bet.ErrInvalidAmount) {
		t.Errorf("zero recharge err = %v", err)
	}
}

func TestRechargeUnlocksWager(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)

	if _, err := m.PlaceBet(user1, bet.OutcomeLeft, big.NewInt(1e18)); !errors.Is(err, bet.ErrInsufficientCollateral) {
		t.Fatalf("err = %v", err)
	}
	// 2.5e18 <= 1.5e18 + 1e18
	if _, err := m.RechargeDeposit(dealer, big.NewInt(5e17)); err != nil {
		t.Fatal(err)
	}
	mustBet(t, m, user1, bet.OutcomeLeft, 1e18)
	assertSolvent(t, m)
}

// Format 1 é o mercado de dois resultados: o meio não recebe apostas
// nem entra na checagem de solvência
func TestTwoWayFormatDisablesMiddle(t *testing.T) {
	odds := nbaOdds(bet.FormatTwoWay)
	if odds.ValidOutcome(bet.OutcomeMiddle) {
		t.Fatal("middle valid on format 1")
	}
	if got := odds.Outcomes(); len(got) != 2 || got[0] != bet.OutcomeLeft || got[1] != bet.OutcomeRight {
		t.Fatalf("outcomes = %v", got)
	}

	m, err := bet.New(bet.Config{
		Address:   market,
		Dealer:    dealer,
		Admin:     owner,
		Odds:      odds,
		Deposit:   big.NewInt(1e18),
		Transfers: newFakeTransfers(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.PlaceBet(user2, bet.OutcomeMiddle, big.NewInt(1e17)); !errors.Is(err, bet.ErrInvalidOutcome) {
		t.Fatalf("middle wager err = %v, want ErrInvalidOutcome", err)
	}
	mustBet(t, m, user1, bet.OutcomeLeft, 1e17)
	mustBet(t, m, user3, bet.OutcomeRight, 1e17)
	if m.StakedOn(bet.OutcomeMiddle).Sign() != 0 {
		t.Errorf("middle staked = %s", m.StakedOn(bet.OutcomeMiddle))
	}
}

func TestCheckWagerHasNoEffect(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)

	if err := m.CheckWager(user1, bet.OutcomeLeft, big.NewInt(1e17)); err != nil {
		t.Fatalf("check = %v", err)
	}
	if m.TotalStaked().Sign() != 0 || len(m.Roster()) != 0 {
		t.Fatalf("check changed state: total %s roster %d", m.TotalStaked(), len(m.Roster()))
	}
	// 1e18 na esquerda deve 2.5e18 > 1e18 + 1e18
	if err := m.CheckWager(user1, bet.OutcomeLeft, big.NewInt(1e18)); !errors.Is(err, bet.ErrInsufficientCollateral) {
		t.Errorf("insolvent check = %v", err)
	}

	mustBet(t, m, user1, bet.OutcomeLeft, 1e17)
	if err := m.CheckWager(user1, bet.OutcomeRight, big.NewInt(1e17)); !errors.Is(err, bet.ErrAlreadyWagered) {
		t.Errorf("second wager check = %v", err)
	}
	if err := m.CheckRecharge(big.NewInt(0)); !errors.Is(err, bet.ErrInvalidAmount) {
		t.Errorf("zero recharge check = %v", err)
	}

	if _, err := m.ManualCloseBet(context.Background(), owner, bet.Score{Left: 118, Right: 109}); err != nil {
		t.Fatal(err)
	}
	if err := m.CheckWager(user2, bet.OutcomeLeft, big.NewInt(1e17)); !errors.Is(err, bet.ErrMarketClosed) {
		t.Errorf("closed check = %v", err)
	}
	if err := m.CheckRecharge(big.NewInt(1)); !errors.Is(err, bet.ErrMarketClosed) {
		t.Errorf("closed recharge check = %v", err)
	}
}
