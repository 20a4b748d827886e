package combine

import "errors"

// ErrMalformedRecordFile reports a structured output file whose top level
// is not a list of records. It aborts the whole combine.
var ErrMalformedRecordFile = errors.New("malformed record file")
