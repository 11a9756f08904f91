package features

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// ReportSchemaVersion is bumped whenever the encoded layout changes.
const ReportSchemaVersion uint16 = 1

type reportFile struct {
	Schema  uint16        `msgpack:"schema"`
	Reports []*FuncReport `msgpack:"reports"`
}

// EncodeReports writes reports as one msgpack document.
func EncodeReports(w io.Writer, reports []*FuncReport) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(&reportFile{Schema: ReportSchemaVersion, Reports: reports}); err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	return nil
}

// DecodeReports reads a document written by EncodeReports.
func DecodeReports(r io.Reader) ([]*FuncReport, error) {
	var file reportFile
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	if file.Schema != ReportSchemaVersion {
		return nil, fmt.Errorf("decode reports: schema %d, want %d", file.Schema, ReportSchemaVersion)
	}
	return file.Reports, nil
}
