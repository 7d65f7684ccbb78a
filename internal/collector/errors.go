package collector

import "errors"

// ErrExtractionAnomaly marks a block whose extraction failed unexpectedly.
// It is logged and counted, the block is skipped and collection continues;
// it never escapes Collect.
var ErrExtractionAnomaly = errors.New("extraction anomaly")
