package testutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Importing testutil quiets the standard logger unless the test binary runs
// with -v, in which case everything down to trace is printed. Flags aren't
// parsed yet during init, so os.Args is inspected directly.
func init() {
	logrus.SetLevel(logrus.TraceLevel)
	if !verbose(os.Args[1:]) {
		logrus.SetOutput(io.Discard)
	}
}

func verbose(args []string) bool {
	for _, arg := range args {
		switch strings.TrimPrefix(arg, "-") {
		case "test.v", "test.v=true", "v":
			return true
		}
	}
	return false
}
