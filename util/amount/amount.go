package amount

import "fmt"

// Amount is a quantity of satoshis.
type Amount int64

const (
	COIN      Amount = 100000000
	CENT      Amount = 1000000
	MaxMoney         = 21000000 * COIN
)

func MoneyRange(a Amount) bool {
	return a >= 0 && a <= MaxMoney
}

func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%08d BTC", sign, v/int64(COIN), v%int64(COIN))
}
