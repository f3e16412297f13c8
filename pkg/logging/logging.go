// Package logging wires the commonlog backend used across the module.
// Program output goes to stdout; logs go to stderr or to a file.
package logging

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Configure sets the global verbosity (0 shows notices and above, 1 adds
// info, 2 adds debug) and the log file. An empty path logs to stderr.
func Configure(verbosity int, path string) {
	if path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &path)
}

// Get returns the named logger, e.g. "avm.vm".
func Get(name string) commonlog.Logger {
	return commonlog.GetLogger(name)
}
