package sensor

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Reading is one instantaneous sample from a channel. Value is an integer in
// [0, 2^resolution - 1].
type Reading struct {
	Name  string `json:"name"`
	Input int    `json:"input"`
	Value int    `json:"value"`
}

// Report is one acquisition pass over all channels, stamped with milliseconds
// since process start. The timestamp is uint32 on purpose: it matches the
// wire format the calibration tooling expects and wraps like the original
// counter did.
type Report struct {
	UptimeMs uint32
	Readings []Reading
}

// Sensor reads all configured channels in table order. Implementations must
// be safe for concurrent use: the sampler and the HTTP handlers each read
// independently.
type Sensor interface {
	Read() ([]Reading, error)
	Close() error
}

// Snapshot marshals readings as a JSON object keyed by channel name, keys in
// table order. encoding/json sorts map keys, which would break the ordering
// contract shared with the CSV columns and the dashboard, so the object is
// written out manually.
type Snapshot []Reading

func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(r.Value))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
