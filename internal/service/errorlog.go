package service

import (
	"context"
	"encoding/json"
	"fmt"

	"eventory-payments/internal/model"
	"eventory-payments/internal/repository"
	"eventory-payments/internal/validation"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type errorRecorder struct {
	logRepo repository.LogRepository
}

// record writes an error_logs row. It never fails the caller, and it outlives
// the request context so a client disconnect does not drop the row.
func (r errorRecorder) record(ctx context.Context, source string, cause error, fields logrus.Fields) {
	entry := logrus.WithFields(fields).WithField("source", source).WithError(cause)
	entry.Error("recording error")

	payload, err := json.Marshal(fields)
	if err != nil {
		payload = []byte("{}")
	}

	err = r.logRepo.CreateErrorLog(context.WithoutCancel(ctx), &model.ErrorLog{
		Source:  source,
		Message: truncate(cause.Error(), 1024),
		Stack:   stackOf(cause),
		Context: string(payload),
	})
	if err != nil {
		entry.WithField("log_error", err.Error()).Warn("write error log")
	}
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// stackOf formats cause followed by a stack trace. A cause that already carries
// one keeps it; any other gets the trace of the recording call.
func stackOf(cause error) string {
	var traced stackTracer
	if !pkgerrors.As(cause, &traced) {
		traced = pkgerrors.WithStack(cause).(stackTracer)
	}
	return fmt.Sprintf("%s%+v", cause.Error(), traced.StackTrace())
}

// truncate cuts s to max characters without splitting a rune.
func truncate(s string, max int) string {
	return validation.Bound(s, max)
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
