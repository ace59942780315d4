package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine failures.
type ErrorCode string

const (
	CodeInputInvalid        ErrorCode = "INPUT_INVALID"
	CodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	CodeScheduleInfeasible  ErrorCode = "SCHEDULE_INFEASIBLE"
	CodeCapacityExceeded    ErrorCode = "CAPACITY_EXCEEDED"
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageValidate Stage = "validate"
	StageMatrix   Stage = "matrix"
	StageHours    Stage = "hours"
	StageOptimize Stage = "optimize"
	StageSchedule Stage = "schedule"
	StageWeekly   Stage = "weekly"
)

// EngineError carries enough context to act on a failure without re-running
// the optimizer.
type EngineError struct {
	Code    ErrorCode
	PointID string
	Stage   Stage
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Stage)
	if e.PointID != "" {
		msg += fmt.Sprintf(" point=%s", e.PointID)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Cause }

// Is matches sentinels by code so errors.Is(err, ErrInputInvalid) works for
// any point or stage.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.PointID == "" || t.PointID == e.PointID)
}

var (
	ErrInputInvalid        = &EngineError{Code: CodeInputInvalid}
	ErrProviderUnavailable = &EngineError{Code: CodeProviderUnavailable}
	ErrScheduleInfeasible  = &EngineError{Code: CodeScheduleInfeasible}
	ErrCapacityExceeded    = &EngineError{Code: CodeCapacityExceeded}
)

func InputInvalid(pointID, format string, args ...any) *EngineError {
	return &EngineError{
		Code:    CodeInputInvalid,
		PointID: pointID,
		Stage:   StageValidate,
		Message: fmt.Sprintf(format, args...),
	}
}

func ProviderUnavailable(pointID string, cause error) *EngineError {
	return &EngineError{
		Code:    CodeProviderUnavailable,
		PointID: pointID,
		Stage:   StageMatrix,
		Cause:   cause,
	}
}

func ScheduleInfeasible(pointID, format string, args ...any) *EngineError {
	return &EngineError{
		Code:    CodeScheduleInfeasible,
		PointID: pointID,
		Stage:   StageSchedule,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsEngineError extracts the first EngineError in err's chain.
func AsEngineError(err error) (*EngineError, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
