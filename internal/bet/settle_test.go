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

func TestResolveOutcome(t *testing.T) {
	tests := []struct {
		name     string
		score    bet.Score
		handicap int32
		format   bet.Format
		want     bet.Outcome
		wantErr  error
	}{
		{"left wins", bet.Score{Left: 118, Right: 109}, 0, bet.FormatThreeWay, bet.OutcomeLeft, nil},
		{"right wins", bet.Score{Left: 100, Right: 109}, 0, bet.FormatThreeWay, bet.OutcomeRight, nil},
		{"draw three-way", bet.Score{Left: 99, Right: 99}, 0, bet.FormatThreeWay, bet.OutcomeMiddle, nil},
		{"left covers spread", bet.Score{Left: 120, Right: 109}, 10, bet.FormatThreeWay, bet.OutcomeLeft, nil},
		{"margin inside spread", bet.Score{Left: 118, Right: 109}, 10, bet.FormatThreeWay, bet.OutcomeMiddle, nil},
		{"margin equals spread", bet.Score{Left: 119, Right: 109}, 10, bet.FormatThreeWay, bet.OutcomeMiddle, nil},
		{"right beyond spread", bet.Score{Left: 90, Right: 101}, 10, bet.FormatThreeWay, bet.OutcomeRight, nil},
		{"two-way left", bet.Score{Left: 118, Right: 109}, 0, bet.FormatTwoWay, bet.OutcomeLeft, nil},
		{"two-way tie", bet.Score{Left: 100, Right: 100}, 0, bet.FormatTwoWay, bet.OutcomeNone, bet.ErrInvalidConfiguration},
		{"zero score", bet.Score{}, 0, bet.FormatThreeWay, bet.OutcomeMiddle, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				got, err := bet.ResolveOutcome(tt.score, tt.handicap, tt.format)
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if got != tt.want {
					t.Errorf("ResolveOutcome(%+v, %d) = %s, want %s", tt.score, tt.handicap, got, tt.want)
				}
			}
		})
	}
}

func TestPayoutTruncates(t *testing.T) {
	odds := nbaOdds(bet.FormatThreeWay)
	tests := []struct {
		outcome bet.Outcome
		stake   int64
		want    int64
	}{
		{bet.OutcomeLeft, 1e17, 25e16},
		{bet.OutcomeMiddle, 3, 5},
		{bet.OutcomeRight, 7, 8},
		{bet.OutcomeRight, 1, 1},
	}
	for _, tt := range tests {
		got := odds.Payout(tt.outcome, big.NewInt(tt.stake))
		if got.Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("Payout(%s, %d) = %s, want %d", tt.outcome, tt.stake, got, tt.want)
		}
	}
}

// placeScenario monta o mercado do fluxo padrão: 4 apostas + recarga
func placeScenario(t *testing.T, m *bet.Market) {
	t.Helper()
	mustBet(t, m, user2, bet.OutcomeMiddle, 1e17)
	mustBet(t, m, user3, bet.OutcomeRight, 1e17)
	mustBet(t, m, user1, bet.OutcomeLeft, 1e17)
	mustBet(t, m, user4, bet.OutcomeLeft, 1e17)
	if _, err := m.RechargeDeposit(dealer, big.NewInt(1e17)); err != nil {
		t.Fatal(err)
	}
}

func TestManualCloseBetPaysWinners(t *testing.T) {
	tr := newFakeTransfers()
	m := newMarket(t, tr, 0)
	placeScenario(t, m)

	s, err := m.ManualCloseBet(context.Background(), owner, bet.Score{Left: 118, Right: 109})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !s.Done || s.Paid != 2 || s.Failed != 0 || s.Remaining != 0 {
		t.Fatalf("settlement = %+v", s)
	}
	if m.Status() != bet.StatusClosed {
		t.Errorf("status = %s", m.Status())
	}
	if m.WinningOutcome() != bet.OutcomeLeft {
		t.Errorf("winner = %s", m.WinningOutcome())
	}
	if fs := m.FinalScore(); fs.Left != 118 || fs.Right != 109 {
		t.Errorf("final score = %+v", fs)
	}

	want := big.NewInt(25e16)
	for _, u := range []common.Address{user1, user4} {
		if tr.paid[u] == nil || tr.paid[u].Cmp(want) != 0 {
			t.Errorf("paid %s = %v, want %s", u.Hex(), tr.paid[u], want)
		}
	}
	for _, u := range []common.Address{user2, user3} {
		if tr.paid[u] != nil {
			t.Errorf("loser %s was paid %s", u.Hex(), tr.paid[u])
		}
	}
	if tr.n != 2 {
		t.Errorf("transfers = %d, want 2 (losers are not visited)", tr.n)
	}

	// MarketClosed, Payout, Payout, SettlementCompleted
	types := make([]string, len(s.Events))
	for i, e := range s.Events {
		types[i] = e.EventType()
	}
	wantTypes := []string{events.TypeMarketClosed, events.TypePayout, events.TypePayout, events.TypeSettlementCompleted}
	if len(types) != len(wantTypes) {
		t.Fatalf("events = %v", types)
	}
	for i := range wantTypes {
		if types[i] != wantTypes[i] {
			t.Errorf("event[%d] = %s, want %s", i, types[i], wantTypes[i])
		}
	}

	// deposit 1.1e18, stakes 4e17, pagos 5e17
	if m.PaidOut().Cmp(big.NewInt(5e17)) != 0 {
		t.Errorf("paid out = %s", m.PaidOut())
	}
	if m.Balance().Cmp(big.NewInt(1e18)) != 0 {
		t.Errorf("balance = %s, want 1e18", m.Balance())
	}
	if m.Deposit().Cmp(big.NewInt(1e18)) != 0 {
		t.Errorf("deposit = %s, want 1e18", m.Deposit())
	}
}

func TestClosedMarketIsLocked(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)
	placeScenario(t, m)
	if _, err := m.ManualCloseBet(context.Background(), owner, bet.Score{Left: 118, Right: 109}); err != nil {
		t.Fatal(err)
	}

	if _, err := m.PlaceBet(common.HexToAddress("0xbeef"), bet.OutcomeLeft, big.NewInt(1e17)); !errors.Is(err, bet.ErrMarketClosed) {
		t.Errorf("place bet err = %v, want ErrMarketClosed", err)
	}
	// mercado fechado vence valor abaixo do mínimo
	if _, err := m.PlaceBet(common.HexToAddress("0xbeef"), 0, big.NewInt(1)); !errors.Is(err, bet.ErrMarketClosed) {
		t.Errorf("place bet err = %v, want ErrMarketClosed", err)
	}
	if _, err := m.RechargeDeposit(dealer, big.NewInt(1e17)); !errors.Is(err, bet.ErrMarketClosed) {
		t.Errorf("recharge err = %v, want ErrMarketClosed", err)
	}
	if _, err := m.ManualCloseBet(context.Background(), owner, bet.Score{Left: 1, Right: 2}); !errors.Is(err, bet.ErrAlreadyClosed) {
		t.Errorf("close err = %v, want ErrAlreadyClosed", err)
	}
	if fs := m.FinalScore(); fs.Left != 118 {
		t.Errorf("final score overwritten: %+v", fs)
	}
}

func TestManualCloseBetRequiresAdmin(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)
	placeScenario(t, m)

	for _, caller := range []common.Address{dealer, user1} {
		if _, err := m.ManualCloseBet(context.Background(), caller, bet.Score{Left: 1}); !errors.Is(err, bet.ErrUnauthorized) {
			t.Errorf("caller %s err = %v, want ErrUnauthorized", caller.Hex(), err)
		}
	}
	if m.Status() != bet.StatusOpen {
		t.Errorf("status = %s", m.Status())
	}
}

func TestTwoWayTieLeavesMarketOpen(t *testing.T) {
	m, err := bet.New(bet.Config{
		Address:   market,
		Admin:     owner,
		Odds:      nbaOdds(bet.FormatTwoWay),
		Deposit:   big.NewInt(1e18),
		Transfers: newFakeTransfers(),
	})
	if err != nil {
		t.Fatal(err)
	}
	mustBet(t, m, user1, bet.OutcomeLeft, 1e17)

	if _, err := m.ManualCloseBet(context.Background(), owner, bet.Score{Left: 100, Right: 100}); !errors.Is(err, bet.ErrInvalidConfiguration) {
		t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
	}
	if m.Status() != bet.StatusOpen || m.WinningOutcome() != bet.OutcomeNone {
		t.Fatalf("state changed: %s / %s", m.Status(), m.WinningOutcome())
	}
}

func TestSettlementIsolatesFailedPayout(t *testing.T) {
	tr := newFakeTransfers()
	tr.fail[user1] = errors.New("recipient rejects funds")
	m := newMarket(t, tr, 0)
	placeScenario(t, m)

	s, err := m.ManualCloseBet(context.Background(), owner, bet.Score{Left: 118, Right: 109})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.Paid != 1 || s.Failed != 1 || !s.Done {
		t.Fatalf("settlement = %+v", s)
	}
	if tr.paid[user4] == nil {
		t.Fatal("user4 was not paid")
	}
	failed := m.FailedPayouts()
	if len(failed) != 1 || failed[0].Participant != user1 || failed[0].Amount.Cmp(big.NewInt(25e16)) != 0 {
		t.Fatalf("failed payouts = %+v", failed)
	}
	if m.PaidOut().Cmp(big.NewInt(25e16)) != 0 {
		t.Errorf("paid out = %s", m.PaidOut())
	}

	// ainda recusando: continua pendente
	s, err = m.RetryFailedPayouts(context.Background(), owner)
	if err != nil || s.Failed != 1 || len(m.FailedPayouts()) != 1 {
		t.Fatalf("retry = %+v, %v", s, err)
	}

	delete(tr.fail, user1)
	s, err = m.RetryFailedPayouts(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if s.Paid != 1 || len(m.FailedPayouts()) != 0 {
		t.Fatalf("retry = %+v, pending %d", s, len(m.FailedPayouts()))
	}
	if tr.paid[user1].Cmp(big.NewInt(25e16)) != 0 {
		t.Errorf("user1 paid %s", tr.paid[user1])
	}
}

func TestSettlementInBatches(t *testing.T) {
	tr := newFakeTransfers()
	m := newMarket(t, tr, 2)
	placeScenario(t, m)

	s, err := m.ManualCloseBet(context.Background(), owner, bet.Score{Left: 118, Right: 109})
	if err != nil {
		t.Fatal(err)
	}
	// roster: user2(meio), user3(direita) -> nenhum vencedor no primeiro lote
	if s.Done || s.Remaining != 2 || s.Paid != 0 {
		t.Fatalf("first batch = %+v", s)
	}
	if m.Status() != bet.StatusClosing {
		t.Fatalf("status = %s, want CLOSING", m.Status())
	}
	if _, err := m.PlaceBet(common.HexToAddress("0xbeef"), bet.OutcomeLeft, big.NewInt(1e17)); !errors.Is(err, bet.ErrMarketClosed) {
		t.Errorf("place bet while closing err = %v", err)
	}
	if _, err := m.ManualCloseBet(context.Background(), owner, bet.Score{}); !errors.Is(err, bet.ErrAlreadyClosed) {
		t.Errorf("close while closing err = %v", err)
	}
	if _, err := m.ContinueSettlement(context.Background(), dealer); !errors.Is(err, bet.ErrUnauthorized) {
		t.Errorf("continue by dealer err = %v", err)
	}

	s, err = m.ContinueSettlement(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Done || s.Paid != 2 || m.Status() != bet.StatusClosed {
		t.Fatalf("second batch = %+v, status %s", s, m.Status())
	}
	if _, err := m.ContinueSettlement(context.Background(), owner); !errors.Is(err, bet.ErrNotSettling) {
		t.Errorf("continue after close err = %v", err)
	}
}

func TestSettlementStopsOnCancelledContext(t *testing.T) {
	tr := newFakeTransfers()
	m := newMarket(t, tr, 0)
	placeScenario(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := m.ManualCloseBet(ctx, owner, bet.Score{Left: 118, Right: 109})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if s == nil || s.Remaining != 4 || tr.n != 0 {
		t.Fatalf("settlement = %+v, transfers %d", s, tr.n)
	}
	if m.Status() != bet.StatusClosing {
		t.Fatalf("status = %s", m.Status())
	}

	s, err = m.ContinueSettlement(context.Background(), owner)
	if err != nil || !s.Done || s.Paid != 2 {
		t.Fatalf("continue = %+v, %v", s, err)
	}
}

func TestRetryRequiresClosedMarket(t *testing.T) {
	m := newMarket(t, newFakeTransfers(), 0)
	if _, err := m.RetryFailedPayouts(context.Background(), owner); !errors.Is(err, bet.ErrNotSettling) {
		t.Fatalf("err = %v, want ErrNotSettling", err)
	}
}
