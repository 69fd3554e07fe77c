package output

import (
	"github.com/crimson-sun/repeatwatch/internal/engine/compactor"
	"github.com/crimson-sun/repeatwatch/internal/model"
)

// FormatRecord returns a copy of rec trimmed to verbosity.
func FormatRecord(rec model.Record, verbosity compactor.Verbosity) model.Record {
	return compactor.New(verbosity).Compact(rec)
}
