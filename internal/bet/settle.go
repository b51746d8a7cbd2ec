package bet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bingozwb/bet-center/pkg/contracts/events"
)

// ResolveOutcome determina o resultado vencedor a partir do placar e do spread.
// margem > handicap -> esquerda; margem < -handicap -> direita; senão meio.
// Em mercado de dois resultados o meio não existe e o empate é erro de configuração.
func ResolveOutcome(score Score, handicap int32, format Format) (Outcome, error) {
	margin := int64(score.Left) - int64(score.Right)
	h := int64(handicap)

	switch {
	case margin > h:
		return OutcomeLeft, nil
	case margin < -h:
		return OutcomeRight, nil
	case format == FormatThreeWay:
		return OutcomeMiddle, nil
	default:
		return OutcomeNone, fmt.Errorf("%w: push (margin %d, handicap %d) on a two-outcome market",
			ErrInvalidConfiguration, margin, handicap)
	}
}

// Settlement é o resultado de uma chamada de liquidação.
// Paid/Failed contam apenas o que foi feito nesta chamada.
type Settlement struct {
	Receipt
	Paid      int
	Failed    int
	Remaining int // entradas do roster ainda não visitadas
	Done      bool
}

// ManualCloseBet encerra as apostas com o placar final e paga os vencedores.
// Com PayoutBatchSize > 0 o mercado pode ficar em Closing; use ContinueSettlement.
func (m *Market) ManualCloseBet(ctx context.Context, caller common.Address, score Score) (*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.admin {
		return nil, ErrUnauthorized
	}
	if m.status != StatusOpen {
		return nil, ErrAlreadyClosed
	}
	winner, err := ResolveOutcome(score, m.odds.Handicap, m.odds.Format)
	if err != nil {
		return nil, err
	}

	m.finalScore = score
	m.winner = winner
	m.status = StatusClosing

	m.log.Info("market closed",
		zap.Uint32("left_points", score.Left),
		zap.Uint32("right_points", score.Right),
		zap.Stringer("winner", winner),
		zap.Int("players", m.book.Len()),
	)

	s := &Settlement{}
	s.emit(&events.MarketClosed{
		Market:         m.addr.Hex(),
		LeftPoints:     score.Left,
		RightPoints:    score.Right,
		WinningOutcome: uint8(winner),
	})
	return s, m.settleBatch(ctx, s)
}

// ContinueSettlement processa o próximo lote de um mercado em Closing
func (m *Market) ContinueSettlement(ctx context.Context, caller common.Address) (*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.admin {
		return nil, ErrUnauthorized
	}
	if m.status != StatusClosing {
		return nil, ErrNotSettling
	}
	s := &Settlement{}
	return s, m.settleBatch(ctx, s)
}

// RetryFailedPayouts tenta de novo os pagamentos recusados de um mercado fechado
func (m *Market) RetryFailedPayouts(ctx context.Context, caller common.Address) (*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.admin {
		return nil, ErrUnauthorized
	}
	if m.status != StatusClosed {
		return nil, ErrNotSettling
	}

	s := &Settlement{Done: true}
	pending := m.failed
	m.failed = nil
	for i, f := range pending {
		if err := ctx.Err(); err != nil {
			m.failed = append(m.failed, pending[i:]...)
			return s, err
		}
		m.pay(ctx, s, f.Participant, f.Amount)
	}
	return s, nil
}

// settleBatch percorre o roster a partir do cursor. Uma falha de
// transferência afeta só aquele vencedor; a liquidação segue.
func (m *Market) settleBatch(ctx context.Context, s *Settlement) error {
	n := m.book.Len()
	for visited := 0; m.cursor < n && (m.batch == 0 || visited < m.batch); visited++ {
		if err := ctx.Err(); err != nil {
			s.Remaining = n - m.cursor
			return err
		}
		addr, pos := m.book.At(m.cursor)
		m.cursor++
		if pos.Outcome != m.winner {
			continue
		}
		m.pay(ctx, s, addr, m.odds.Payout(m.winner, pos.Amount))
	}

	s.Remaining = n - m.cursor
	if s.Remaining > 0 {
		return nil
	}

	m.status = StatusClosed
	s.Done = true
	s.emit(&events.SettlementCompleted{
		Market:  m.addr.Hex(),
		Paid:    m.paid,
		Failed:  len(m.failed),
		PaidOut: m.paidOut.String(),
		Balance: m.balanceLocked().String(),
	})
	m.log.Info("settlement completed",
		zap.Int("paid", m.paid),
		zap.Int("failed", len(m.failed)),
		zap.String("paid_out", m.paidOut.String()),
	)
	return nil
}

// pay transfere e registra o resultado; falhas vão para m.failed
func (m *Market) pay(ctx context.Context, s *Settlement, to common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	if err := m.transfers.Transfer(ctx, m.addr, to, amount); err != nil {
		m.log.Warn("payout failed",
			zap.String("participant", to.Hex()),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
		m.failed = append(m.failed, FailedPayout{Participant: to, Amount: amount, Reason: err.Error()})
		s.Failed++
		s.emit(&events.PayoutFailed{
			Market:      m.addr.Hex(),
			Participant: to.Hex(),
			Amount:      amount.String(),
			Reason:      err.Error(),
		})
		return
	}
	m.paidOut.Add(m.paidOut, amount)
	m.paid++
	s.Paid++
	s.emit(&events.Payout{
		Market:      m.addr.Hex(),
		Participant: to.Hex(),
		Amount:      amount.String(),
	})
}
