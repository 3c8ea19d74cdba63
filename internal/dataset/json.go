package dataset

import "encoding/json"

type columnJSON struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

type datasetJSON struct {
	Name       string       `json:"name,omitempty"`
	Rows       int          `json:"rows"`
	AverageRPM Float        `json:"average_rpm"`
	Columns    []columnJSON `json:"columns"`
	Data       [][]Value    `json:"data"`
}

// MarshalJSON encodes the table row-major with columns in table order.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := datasetJSON{
		Name:       d.Name,
		Rows:       d.Rows,
		AverageRPM: Float(d.AverageRPM),
		Columns:    make([]columnJSON, len(d.cols)),
		Data:       make([][]Value, d.Rows),
	}
	for j, c := range d.cols {
		out.Columns[j] = columnJSON{Name: c.Name, Kind: c.Kind}
	}
	for i := 0; i < d.Rows; i++ {
		row := make([]Value, len(d.cols))
		for j, c := range d.cols {
			row[j] = c.Values[i]
		}
		out.Data[i] = row
	}
	return json.Marshal(out)
}
