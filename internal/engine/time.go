package engine

import "time"

// timeNow is a package-level variable for testability.
// Tests can replace this to control record timestamps.
var timeNow = time.Now
