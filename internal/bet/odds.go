package bet

import (
	"fmt"
	"math/big"
)

// Outcome identifica o resultado apostado: 1 esquerda, 2 meio (empate), 3 direita.
// O índice 0 é inválido.
type Outcome uint8

const (
	OutcomeNone   Outcome = 0
	OutcomeLeft   Outcome = 1
	OutcomeMiddle Outcome = 2
	OutcomeRight  Outcome = 3
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLeft:
		return "left"
	case OutcomeMiddle:
		return "middle"
	case OutcomeRight:
		return "right"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Format é o flag de configuração do mercado.
// 1 = dois resultados (meio desabilitado), 3 = três resultados.
type Format uint8

const (
	FormatTwoWay   Format = 1
	FormatThreeWay Format = 3
)

// oddsScale: as odds são inteiros x100 (250 = 2.50)
var oddsScale = big.NewInt(100)

// OddsTable é a configuração imutável de um mercado
type OddsTable struct {
	Category        string
	ExternalEventID string
	MinimumStake    *big.Int
	Handicap        int32     // spread aplicado à diferença do placar
	Odds            [3]uint64 // x100, índice 0 = OutcomeLeft
	Format          Format
	StartTime       int64 // unix, apenas informativo
	Duration        int64 // segundos, apenas informativo
}

// Validate rejeita odds zeradas, aposta mínima não positiva e format desconhecido
func (t OddsTable) Validate() error {
	for i, o := range t.Odds {
		if o == 0 {
			return fmt.Errorf("%w: odds for outcome %d must be positive", ErrInvalidConfiguration, i+1)
		}
	}
	if t.MinimumStake == nil || t.MinimumStake.Sign() <= 0 {
		return fmt.Errorf("%w: minimum stake must be positive", ErrInvalidConfiguration)
	}
	if t.Format != FormatTwoWay && t.Format != FormatThreeWay {
		return fmt.Errorf("%w: format must be 1 or 3, got %d", ErrInvalidConfiguration, t.Format)
	}
	return nil
}

// ValidOutcome diz se o resultado pode receber apostas neste mercado
func (t OddsTable) ValidOutcome(o Outcome) bool {
	switch o {
	case OutcomeLeft, OutcomeRight:
		return true
	case OutcomeMiddle:
		return t.Format == FormatThreeWay
	default:
		return false
	}
}

// Outcomes lista os resultados configurados, em ordem
func (t OddsTable) Outcomes() []Outcome {
	if t.Format == FormatThreeWay {
		return []Outcome{OutcomeLeft, OutcomeMiddle, OutcomeRight}
	}
	return []Outcome{OutcomeLeft, OutcomeRight}
}

// OddsFor retorna o multiplicador x100 do resultado (0 se inválido)
func (t OddsTable) OddsFor(o Outcome) uint64 {
	if o < OutcomeLeft || o > OutcomeRight {
		return 0
	}
	return t.Odds[o-1]
}

// Payout = stake * odds / 100, truncado
func (t OddsTable) Payout(o Outcome, stake *big.Int) *big.Int {
	p := new(big.Int).Mul(stake, new(big.Int).SetUint64(t.OddsFor(o)))
	return p.Quo(p, oddsScale)
}

// clone copia a tabela, incluindo o big.Int, para que leitores não a alterem
func (t OddsTable) clone() OddsTable {
	c := t
	if t.MinimumStake != nil {
		c.MinimumStake = new(big.Int).Set(t.MinimumStake)
	}
	return c
}
