package astidvb

import "github.com/asticode/go-astikit"

// logger is the default logger of demuxers, decoders and text decoders created without a logger option
// Unknown descriptors and tables are only worth a log line since broadcasters make heavy use of them
var logger = astikit.AdaptStdLogger(nil)

// SetLogger sets the default logger
// It only impacts objects created afterwards
func SetLogger(l astikit.StdLogger) { logger = astikit.AdaptStdLogger(l) }
