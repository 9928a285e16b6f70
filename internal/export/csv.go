package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/step.report/internal/fsutil"
	"github.com/banshee-data/step.report/internal/step"
)

// WriteCSV writes the valid events as "Step,Time" rows, one-based step
// numbers and times in seconds to three decimals with an "s" suffix.
// The sentinel and anything after it are not written.
func WriteCSV(w io.Writer, records step.Records) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Step", "Time"}); err != nil {
		return err
	}
	for _, e := range records.Valid() {
		row := []string{strconv.Itoa(e.Number()), fmt.Sprintf("%.3fs", e.Time)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the CSV step record to path.
func WriteCSVFile(fsys fsutil.FileSystem, path string, records step.Records) (int64, error) {
	return writeFile(fsys, path, func(w io.Writer) error {
		return WriteCSV(w, records)
	})
}
