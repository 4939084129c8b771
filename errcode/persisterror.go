package errcode

import (
	"fmt"
)

type PersistErr int

const (
	ErrorUnknownDbType PersistErr = PersistErrorBase + iota
	ErrorOpenDatabase
	ErrorObfuscateKey
	ErrorBatchTooLarge
	ErrorNotExistsInPersistMap // errorTest
)

var PersistErrString = map[PersistErr]string{
	ErrorUnknownDbType: "ErrorUnknownDbType",
	ErrorOpenDatabase:  "ErrorOpenDatabase",
	ErrorObfuscateKey:  "ErrorObfuscateKey",
	ErrorBatchTooLarge: "ErrorBatchTooLarge",
}

func (pe PersistErr) String() string {
	if s, ok := PersistErrString[pe]; ok {
		return s
	}
	return fmt.Sprintf("Unknown code (%d)", pe)
}
