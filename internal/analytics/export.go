package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"qrcode-platform/internal/model"
)

var csvHeader = []string{"scan_id", "qr_code_id", "qr_code_name", "scanned_at", "device", "os", "browser", "country", "city"}

// WriteCSV 逐行写出扫码记录
func WriteCSV(w io.Writer, scans []model.Scan, names map[uint]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range scans {
		s := &scans[i]
		record := []string{
			strconv.FormatUint(uint64(s.ID), 10),
			strconv.FormatUint(uint64(s.QRCodeID), 10),
			names[s.QRCodeID],
			s.ScannedAt.UTC().Format(time.RFC3339),
			valueOrUnknown(s.Device),
			valueOrUnknown(s.OS),
			valueOrUnknown(s.Browser),
			valueOrUnknown(s.Country),
			valueOrEmpty(s.City),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTextReport 生成纯文本报告, 作为 PDF 导出的占位
func WriteTextReport(w io.Writer, r *Report) error {
	p := &errWriter{w: w}
	p.printf("QR Code Analytics Report\n")
	p.printf("Time range: %s (since %s)\n", r.Summary.TimeRange, r.Summary.StartDate.UTC().Format(time.RFC3339))
	p.printf("Total scans: %d\n", r.Summary.TotalScans)
	p.printf("Unique visitors (estimate): %d\n\n", r.Summary.UniqueVisitors)

	sections := []struct {
		title  string
		counts map[string]int64
	}{
		{"Devices", r.Breakdowns.Devices},
		{"Countries", r.Breakdowns.Countries},
		{"Browsers", r.Breakdowns.Browsers},
		{"Operating systems", r.Breakdowns.OS},
	}
	for _, sec := range sections {
		p.printf("%s:\n", sec.title)
		for _, mc := range SortedCounts(sec.counts) {
			p.printf("  %-24s %d\n", mc.Name, mc.Count)
		}
		p.printf("\n")
	}

	p.printf("Top QR codes:\n")
	for _, top := range r.TopQRCodes {
		p.printf("  #%-6d %-24s %d\n", top.QRCodeID, top.Name, top.Count)
	}
	return p.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func valueOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
