package errcode

import (
	"fmt"
)

type CoinErr int

const (
	ErrorCoinCorrupted CoinErr = CoinErrorBase + iota
	ErrorLegacyCoinsCorrupted
	ErrorUpgradeInterrupted
	ErrorCacheInconsistent
	ErrorNotExistsInCoinMap // errorTest
)

var CoinErrString = map[CoinErr]string{
	ErrorCoinCorrupted:        "ErrorCoinCorrupted",
	ErrorLegacyCoinsCorrupted: "ErrorLegacyCoinsCorrupted",
	ErrorUpgradeInterrupted:   "ErrorUpgradeInterrupted",
	ErrorCacheInconsistent:    "ErrorCacheInconsistent",
}

func (ce CoinErr) String() string {
	if s, ok := CoinErrString[ce]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code (%d)", ce)
}
