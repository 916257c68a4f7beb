// Package report renders match records for people and machines.
package report

import (
	"strings"
	"time"

	"github.com/swarmguard/needlescan/services/needlescan/record"
)

const (
	hexDigits  = "0123456789ABCDEF"
	timeLayout = "2006-01-02 15:04:05"
)

// FormatByte renders b as 0xHH.
func FormatByte(b byte) string {
	return string(appendByte(make([]byte, 0, 4), b))
}

func appendByte(dst []byte, b byte) []byte {
	return append(dst, '0', 'x', hexDigits[b>>4], hexDigits[b&0x0F])
}

// FormatTime renders t in UTC as "YYYY-MM-DD HH:MM:SS UTC".
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout) + " UTC"
}

// FormatSequence renders s as "[0x01, 0xFF]"; "[]" when empty.
func FormatSequence(s record.Sequence) string {
	buf := make([]byte, 0, 2+len(s)*6)
	buf = append(buf, '[')
	for i, b := range s {
		if i > 0 {
			buf = append(buf, ',', ' ')
		}
		buf = appendByte(buf, b)
	}
	return string(append(buf, ']'))
}

// FormatRecord renders the timestamp line followed by the needle.
func FormatRecord(m record.Match) string {
	return FormatTime(m.Time) + "\n" + FormatSequence(m.Needle)
}

// FormatRecords renders records separated by a blank line.
func FormatRecords(ms []record.Match) string {
	var sb strings.Builder
	for i, m := range ms {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(FormatRecord(m))
	}
	return sb.String()
}
