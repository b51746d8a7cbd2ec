package bet

import (
	"fmt"
	"math/big"
)

// LiabilityLedger acumula o total apostado por resultado e deriva o pior
// pagamento possível de cada um. É o dado consultado na admissão.
type LiabilityLedger struct {
	odds   OddsTable
	staked [3]*big.Int
	total  *big.Int
}

// NewLiabilityLedger cria o ledger zerado para a tabela informada
func NewLiabilityLedger(odds OddsTable) *LiabilityLedger {
	l := &LiabilityLedger{odds: odds, total: new(big.Int)}
	for i := range l.staked {
		l.staked[i] = new(big.Int)
	}
	return l
}

// StakedOn retorna uma cópia do total apostado no resultado
func (l *LiabilityLedger) StakedOn(o Outcome) *big.Int {
	if o < OutcomeLeft || o > OutcomeRight {
		return new(big.Int)
	}
	return new(big.Int).Set(l.staked[o-1])
}

// TotalStaked retorna uma cópia da soma de todas as apostas admitidas
func (l *LiabilityLedger) TotalStaked() *big.Int {
	return new(big.Int).Set(l.total)
}

// WorstCasePayout é quanto o mercado deve se o resultado vencer
func (l *LiabilityLedger) WorstCasePayout(o Outcome) *big.Int {
	return l.odds.Payout(o, l.StakedOn(o))
}

// Solvent verifica I1 sobre os totais atuais
func (l *LiabilityLedger) Solvent(deposit *big.Int) bool {
	return l.check(l.staked, l.total, deposit) == nil
}

// Admit aplica a aposta de forma tentativa, valida I1 para todos os
// resultados configurados e só então efetiva. Em caso de falha nada muda.
func (l *LiabilityLedger) Admit(o Outcome, amount, deposit *big.Int) error {
	next, total, err := l.tentative(o, amount, deposit)
	if err != nil {
		return err
	}
	l.staked = next
	l.total = total
	return nil
}

// CanAdmit é o Admit sem efeito: diz se a aposta seria aceita agora
func (l *LiabilityLedger) CanAdmit(o Outcome, amount, deposit *big.Int) error {
	_, _, err := l.tentative(o, amount, deposit)
	return err
}

func (l *LiabilityLedger) tentative(o Outcome, amount, deposit *big.Int) ([3]*big.Int, *big.Int, error) {
	var next [3]*big.Int
	if !l.odds.ValidOutcome(o) {
		return next, nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, o)
	}
	copy(next[:], l.staked[:])
	next[o-1] = new(big.Int).Add(l.staked[o-1], amount)
	total := new(big.Int).Add(l.total, amount)

	if err := l.check(next, total, deposit); err != nil {
		return next, nil, err
	}
	return next, total, nil
}

// check: para todo resultado o, staked[o]*odds[o]/100 <= deposit + total
func (l *LiabilityLedger) check(staked [3]*big.Int, total, deposit *big.Int) error {
	available := new(big.Int).Add(deposit, total)
	for _, o := range l.odds.Outcomes() {
		worst := l.odds.Payout(o, staked[o-1])
		if worst.Cmp(available) > 0 {
			return fmt.Errorf("%w: outcome %s would owe %s, available %s",
				ErrInsufficientCollateral, o, worst, available)
		}
	}
	return nil
}
