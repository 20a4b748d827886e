package combine

import "encoding/json"

// accumulator buffers tabular rows and structured records across item
// directories until the final flush. It is rebuilt for every Combine call,
// so repeating a combine never duplicates rows. The combine phase is
// sequential, so no locking is needed.
//
// Records are kept as raw bytes: re-encoding through Go values would
// corrupt integers above 2^53 and HTML-escape string content.
type accumulator struct {
	tables  map[string][][]string
	records map[string][]json.RawMessage

	runtimePropsCopied bool
}

func newAccumulator() *accumulator {
	return &accumulator{
		tables:  make(map[string][][]string),
		records: make(map[string][]json.RawMessage),
	}
}

// addTable appends rows for one tabular filename. The header row of every
// file after the first is dropped; column schemas are assumed identical
// across items.
func (a *accumulator) addTable(name string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	if existing, ok := a.tables[name]; ok {
		a.tables[name] = append(existing, rows[1:]...)
		return
	}
	a.tables[name] = rows
}

func (a *accumulator) addRecords(name string, records []json.RawMessage) {
	a.records[name] = append(a.records[name], records...)
}
