package newrelic

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestForwardedMessage(t *testing.T) {
	logger := logrus.New()

	plain := logrus.NewEntry(logger)
	plain.Message = "escrow initialized"
	assert.Equal(t, "escrow initialized", forwardedMessage(plain))

	withFields := logger.WithFields(logrus.Fields{
		"escrow":        "9xQ",
		logrus.ErrorKey: errors.New("not rent exempt"),
	})
	withFields.Message = "exchange failed"
	assert.Equal(t,
		`message="exchange failed", error="not rent exempt", data={"escrow":"9xQ"}`,
		forwardedMessage(withFields),
	)

	nonError := logger.WithField(logrus.ErrorKey, "text")
	nonError.Message = "m"
	assert.Equal(t, `message="m", error=<nil>, data={}`, forwardedMessage(nonError))
}
