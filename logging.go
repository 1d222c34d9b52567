package nbody

import (
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// newLogger returns a logfmt logger prefixed with the given subsystem name.
func newLogger(subsys string) kitlog.Logger {
	l := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	return kitlog.With(l, "subsys", subsys)
}

var driverLogger = newLogger("driver")
