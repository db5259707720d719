package extractor

import "time"

var processStart = time.Now()

// monotonicMicros returns microseconds since the extractor's process
// epoch, using the monotonic component of time.Now().
func monotonicMicros() int64 {
	return time.Since(processStart).Microseconds()
}
