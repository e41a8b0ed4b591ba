package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/m-mizutani/fennec/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", buf)
	gt.V(t, logger).NotNil()

	logger.Info("test message")
	gt.S(t, buf.String()).Contains("test message")
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("warn", buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	gt.S(t, buf.String()).NotContains("debug message")
	gt.S(t, buf.String()).NotContains("info message")
	gt.S(t, buf.String()).Contains("warn message")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("nosuchlevel", buf)

	logger.Debug("debug message")
	logger.Info("info message")

	gt.S(t, buf.String()).NotContains("debug message")
	gt.S(t, buf.String()).Contains("info message")
}

func TestContextPropagation(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf)

	ctx := logging.With(context.Background(), logger)
	got := logging.From(ctx)
	gt.V(t, got).Equal(logger)

	got.Debug("from context")
	gt.S(t, buf.String()).Contains("from context")
}

func TestFromWithoutLoggerReturnsDefault(t *testing.T) {
	got := logging.From(context.Background())
	gt.V(t, got).NotNil()
	gt.V(t, got).Equal(logging.Default())
}
