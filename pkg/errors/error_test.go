package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeUnknownStrategy, "no preset named %s", "Pro9")
	suite.NotNil(err)
	suite.Equal(ErrCodeUnknownStrategy, err.Code)
	suite.Equal("no preset named Pro9", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeQueryFailed, "failed to load price range", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeQueryFailed, err.Code)
	suite.Equal("failed to load price range", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal("[200] data not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeInconsistentState, "cash went negative")
	suite.Equal(ErrCodeInconsistentState, GetCode(err))

	wrapped := fmt.Errorf("outer: %w", err)
	suite.Equal(ErrCodeInconsistentState, GetCode(wrapped))

	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain error")))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeInsufficientHistory, "short history")
	suite.True(HasCode(err, ErrCodeInsufficientHistory))
	suite.False(HasCode(err, ErrCodeDataNotFound))
}

func (suite *ErrorTestSuite) TestInsufficientHistoryError() {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	err := NewInsufficientHistoryError(60, 59, "SOXL", date)
	suite.True(IsInsufficientHistoryError(err))
	suite.Contains(err.Error(), "SOXL")
	suite.Contains(err.Error(), "2024-03-15")
	suite.Contains(err.Error(), "59 trailing trading days available, 60 required")
}

func (suite *ErrorTestSuite) TestInsufficientHistoryErrorWrapped() {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	inner := NewInsufficientHistoryError(60, 10, "TQQQ", date)
	wrapped := fmt.Errorf("recommendation failed: %w", inner)
	suite.True(IsInsufficientHistoryError(wrapped))
	suite.False(IsInsufficientHistoryError(errors.New("other")))
}
