package dataframe

import "errors"

// Sentinel errors for the dataframe codec's error taxonomy.
var (
	ErrVarNumberInvalid           = errors.New("dataframe: var number invalid")
	ErrUnknownDatatype            = errors.New("dataframe: unknown datatype")
	ErrCommandIdentifierNotFound  = errors.New("dataframe: command identifier not found")
	ErrNumberConversionFailed     = errors.New("dataframe: number conversion failed")
	ErrAcknowledgeUnknown         = errors.New("dataframe: acknowledge token unknown")
	ErrParameterConversionFailed  = errors.New("dataframe: parameter conversion failed")
	ErrExpectedDataLengthNotMet   = errors.New("dataframe: expected data length not met")
	ErrMessageExceedsTxBufferSize = errors.New("dataframe: message exceeds tx buffer size")
	ErrFeatureNotImplemented      = errors.New("dataframe: feature not implemented")
)
