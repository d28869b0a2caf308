package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// CSV sections.
const (
	SectionMetadata = "metadata"
	SectionValue    = "value"
)

var csvHeader = []string{"section", "key", "value"}

type metaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type jsonExport struct {
	Metadata []metaEntry                `json:"metadata"`
	Values   map[string]json.RawMessage `json:"values"`
}

// MarshalJSON renders metadata as an ordered list and values as an object
// with sorted keys.
func (fe *FlatExport) MarshalJSON() ([]byte, error) {
	doc := struct {
		Metadata []metaEntry       `json:"metadata"`
		Values   map[string]float64 `json:"values"`
	}{
		Metadata: make([]metaEntry, 0, len(fe.metaKeys)),
		Values:   fe.values,
	}
	for _, k := range fe.metaKeys {
		doc.Metadata = append(doc.Metadata, metaEntry{Key: k, Value: fe.meta[k]})
	}
	return json.Marshal(doc)
}

// UnmarshalJSON rebuilds an export. Values that are not numbers (or
// numeric strings) are discarded.
func (fe *FlatExport) UnmarshalJSON(data []byte) error {
	var doc jsonExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "failed to decode export")
	}
	*fe = *New()
	for _, m := range doc.Metadata {
		fe.SetMetadata(m.Key, m.Value)
	}
	for k, raw := range doc.Values {
		s := string(raw)
		if strings.HasPrefix(s, `"`) {
			if err := json.Unmarshal(raw, &s); err != nil {
				zap.L().Warn("discarding malformed sample", zap.String("key", k), zap.Error(err))
				continue
			}
		}
		fe.PutString(k, s)
	}
	return nil
}

// WriteCSV writes the export as "section,key,value" rows, metadata first.
func WriteCSV(w io.Writer, fe *FlatExport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	for _, k := range fe.metaKeys {
		if err := cw.Write([]string{SectionMetadata, k, fe.meta[k]}); err != nil {
			return errors.Wrapf(err, "failed to write metadata %q", k)
		}
	}
	for _, k := range fe.Keys() {
		if err := cw.Write([]string{SectionValue, k, strconv.FormatFloat(fe.values[k], 'g', -1, 64)}); err != nil {
			return errors.Wrapf(err, "failed to write value %q", k)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush csv")
}

// ReadCSV parses rows written by WriteCSV.
func ReadCSV(r io.Reader) (*FlatExport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv export")
	}
	fe := New()
	for i, row := range rows {
		if i == 0 && row[0] == csvHeader[0] {
			continue
		}
		switch row[0] {
		case SectionMetadata:
			fe.SetMetadata(row[1], row[2])
		case SectionValue:
			fe.PutString(row[1], row[2])
		default:
			zap.L().Warn("skipping csv row with unknown section", zap.Int("line", i+1), zap.String("section", row[0]))
		}
	}
	return fe, nil
}

// ToStruct converts the export into a protobuf Struct.
func ToStruct(fe *FlatExport) (*structpb.Struct, error) {
	meta := make([]interface{}, 0, len(fe.metaKeys))
	for _, k := range fe.metaKeys {
		meta = append(meta, map[string]interface{}{"key": k, "value": fe.meta[k]})
	}
	values := make(map[string]interface{}, len(fe.values))
	for k, v := range fe.values {
		values[k] = v
	}
	st, err := structpb.NewStruct(map[string]interface{}{
		SectionMetadata: meta,
		"values":        values,
	})
	return st, errors.Wrap(err, "failed to build export struct")
}

// FromStruct is the inverse of ToStruct. Non-numeric values are discarded.
func FromStruct(st *structpb.Struct) *FlatExport {
	fe := New()
	for _, item := range st.GetFields()[SectionMetadata].GetListValue().GetValues() {
		f := item.GetStructValue().GetFields()
		fe.SetMetadata(f["key"].GetStringValue(), f["value"].GetStringValue())
	}
	for k, v := range st.GetFields()["values"].GetStructValue().GetFields() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_NumberValue:
			fe.PutFloat(k, kind.NumberValue)
		case *structpb.Value_StringValue:
			fe.PutString(k, kind.StringValue)
		default:
			zap.L().Warn("discarding non-numeric sample", zap.String("key", k))
		}
	}
	return fe
}

// Encode serializes the export to protobuf wire format. The same export
// always encodes to the same bytes.
func Encode(fe *FlatExport) ([]byte, error) {
	st, err := ToStruct(fe)
	if err != nil {
		return nil, err
	}
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(st)
	return data, errors.Wrap(err, "failed to marshal export")
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*FlatExport, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal export")
	}
	return FromStruct(&st), nil
}

// Load reads an export previously written to disk. Files ending in .csv
// are read with ReadCSV; .json files may hold either a bare export or a
// run document with the export under "export".
func Load(path string) (*FlatExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open export %s", path)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		return readJSON(f)
	default:
		return nil, errors.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}

func readJSON(r io.Reader) (*FlatExport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json export")
	}
	var doc struct {
		Export json.RawMessage `json:"export"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode json export")
	}
	if len(doc.Export) > 0 {
		data = doc.Export
	}
	fe := New()
	if err := fe.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return fe, nil
}
