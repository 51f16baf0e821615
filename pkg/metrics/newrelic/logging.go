package newrelic

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// LogFormatter forwards every entry to New Relic, fields included, and
// decorates the locally formatted line with New Relic linking metadata.
type LogFormatter struct {
	app   *newrelic.Application
	inner logrus.Formatter
}

func NewLogFormatter(app *newrelic.Application, inner logrus.Formatter) LogFormatter {
	return LogFormatter{app: app, inner: inner}
}

func (f LogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	local, err := f.inner.Format(e)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(bytes.TrimRight(local, "\n"))

	record := newrelic.LogData{
		Severity: e.Level.String(),
		Message:  forwardedMessage(e),
	}

	var txn *newrelic.Transaction
	if e.Context != nil {
		txn = newrelic.FromContext(e.Context)
	}

	if txn != nil {
		txn.RecordLog(record)
		err = newrelic.EnrichLog(buf, newrelic.FromTxn(txn))
	} else {
		f.app.RecordLog(record)
		err = newrelic.EnrichLog(buf, newrelic.FromApp(f.app))
	}
	if err != nil {
		return nil, err
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// forwardedMessage folds the entry's fields into the message, since the
// agent only forwards severity and message text.
func forwardedMessage(e *logrus.Entry) string {
	if len(e.Data) == 0 {
		return e.Message
	}

	errText := "<nil>"
	fields := make(map[string]interface{}, len(e.Data))
	for k, v := range e.Data {
		if k != logrus.ErrorKey {
			fields[k] = v
			continue
		}
		if typed, ok := v.(error); ok {
			errText = fmt.Sprintf("%q", typed.Error())
		}
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return e.Message
	}
	return fmt.Sprintf("message=%q, error=%s, data=%s", e.Message, errText, encoded)
}
