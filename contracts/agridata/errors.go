package agridata

import (
	"fmt"

	"golang.org/x/xerrors"
)

// ErrorKind is the stable cause of a failed operation of the registry. Each
// kind has a numeric code that the calling layers can branch on.
type ErrorKind uint16

// The codes match the error codes of the registry contract.
const (
	ErrNotAuthorized            ErrorKind = 100
	ErrInvalidDataHash          ErrorKind = 101
	ErrInvalidMetadata          ErrorKind = 102
	ErrInvalidLocation          ErrorKind = 103
	ErrInvalidCropType          ErrorKind = 104
	ErrInvalidCaptureDate       ErrorKind = 105
	ErrInvalidPrice             ErrorKind = 106
	ErrDataAlreadyExists        ErrorKind = 107
	ErrDataNotFound             ErrorKind = 108
	ErrNotOwner                 ErrorKind = 109
	ErrAuthorityNotVerified     ErrorKind = 110
	ErrInvalidDataType          ErrorKind = 111
	ErrInvalidResolution        ErrorKind = 112
	ErrInvalidAuthorityContract ErrorKind = 113
	ErrMaxEntriesExceeded       ErrorKind = 115
	ErrInvalidDataFormat        ErrorKind = 116
	ErrInvalidCoordinates       ErrorKind = 117
	ErrInvalidSensorType        ErrorKind = 118
)

var kindMessages = map[ErrorKind]string{
	ErrNotAuthorized:            "not authorized",
	ErrInvalidDataHash:          "invalid data hash",
	ErrInvalidMetadata:          "invalid metadata",
	ErrInvalidLocation:          "invalid location",
	ErrInvalidCropType:          "invalid crop type",
	ErrInvalidCaptureDate:       "invalid capture date",
	ErrInvalidPrice:             "invalid price",
	ErrDataAlreadyExists:        "data already exists",
	ErrDataNotFound:             "data not found",
	ErrNotOwner:                 "caller is not the owner",
	ErrAuthorityNotVerified:     "authority not verified",
	ErrInvalidDataType:          "invalid data type",
	ErrInvalidResolution:        "invalid resolution",
	ErrInvalidAuthorityContract: "invalid authority contract",
	ErrMaxEntriesExceeded:       "max data entries exceeded",
	ErrInvalidDataFormat:        "invalid data format",
	ErrInvalidCoordinates:       "invalid coordinates",
	ErrInvalidSensorType:        "invalid sensor type",
}

// Error implements error.
func (k ErrorKind) Error() string {
	msg, found := kindMessages[k]
	if !found {
		return fmt.Sprintf("unknown error (u%d)", uint16(k))
	}

	return fmt.Sprintf("%s (u%d)", msg, uint16(k))
}

// Code returns the numeric code of the kind.
func (k ErrorKind) Code() uint16 {
	return uint16(k)
}

// KindOf returns the kind of the error, if any is part of the chain.
func KindOf(err error) (ErrorKind, bool) {
	var kind ErrorKind

	if xerrors.As(err, &kind) {
		return kind, true
	}

	return 0, false
}
