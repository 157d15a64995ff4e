package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNew() {
	err := New(ErrCodeInsufficientSizing, "quantity floored to zero")

	suite.Equal(ErrCodeInsufficientSizing, err.Code)
	suite.Equal("quantity floored to zero", err.Message)
	suite.Nil(err.Cause)
	suite.Equal("[500] quantity floored to zero", err.Error())
}

func (suite *ErrorTestSuite) TestNewf() {
	err := Newf(ErrCodeSymbolNotFound, "symbol %s not in master list", "NIFTY")

	suite.Equal(ErrCodeSymbolNotFound, err.Code)
	suite.Equal("symbol NIFTY not in master list", err.Message)
}

func (suite *ErrorTestSuite) TestWrap() {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeDataUnavailable, "failed to fetch series", cause)

	suite.Equal(ErrCodeDataUnavailable, err.Code)
	suite.Equal(cause, err.Unwrap())
	suite.Contains(err.Error(), "connection refused")
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeCheckpointCorrupt, "unreadable state file")
	suite.Equal(ErrCodeCheckpointCorrupt, GetCode(err))

	plain := stderrors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(plain))
}

func (suite *ErrorTestSuite) TestGetCodeWrappedChain() {
	inner := New(ErrCodeNoDataFound, "empty window")
	outer := Wrap(ErrCodeQueryFailed, "chunk fetch failed", inner)

	// Outermost code wins.
	suite.Equal(ErrCodeQueryFailed, GetCode(outer))
	suite.True(HasCode(outer, ErrCodeQueryFailed))
	suite.False(HasCode(outer, ErrCodeNoDataFound))
}

func (suite *ErrorTestSuite) TestIsRecoverable() {
	recoverable := []ErrorCode{
		ErrCodeDataUnavailable,
		ErrCodeNoDataFound,
		ErrCodeQueryFailed,
		ErrCodeInsufficientWindow,
		ErrCodeStrategyEvaluateFailed,
		ErrCodeStrategyPanicked,
		ErrCodeInvalidSignal,
		ErrCodeInsufficientSizing,
		ErrCodeMaxPositionsReached,
		ErrCodeCapitalExhausted,
	}
	for _, code := range recoverable {
		suite.True(IsRecoverable(New(code, "test")), "code %d should be recoverable", code)
	}

	fatal := []ErrorCode{
		ErrCodeCheckpointCorrupt,
		ErrCodeOrderRejected,
		ErrCodeBrokerAuth,
		ErrCodeInvalidConfiguration,
	}
	for _, code := range fatal {
		suite.False(IsRecoverable(New(code, "test")), "code %d should not be recoverable", code)
	}
}
