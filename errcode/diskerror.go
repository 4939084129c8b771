package errcode

import (
	"fmt"
)

type DiskErr int

const (
	ErrorOutOfDiskSpace DiskErr = DiskErrorBase + iota
	ErrorFailedToWriteToCoinDatabase
	ErrorFailedToReadCoinDatabase
	SystemErrorWhileFlushing
	ErrorSimulatedCrash
	ErrorNotExistsInDiskMap // errorTest
)

var DiskErrString = map[DiskErr]string{
	ErrorOutOfDiskSpace:              "ErrorOutOfDiskSpace",
	ErrorFailedToWriteToCoinDatabase: "ErrorFailedToWriteToCoinDatabase",
	ErrorFailedToReadCoinDatabase:    "ErrorFailedToReadCoinDatabase",
	SystemErrorWhileFlushing:         "SystemErrorWhileFlushing",
	ErrorSimulatedCrash:              "ErrorSimulatedCrash",
}

func (de DiskErr) String() string {
	if s, ok := DiskErrString[de]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code (%d)", de)
}
