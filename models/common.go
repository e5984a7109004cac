package models

import "strconv"

// Wire formats for the date and timestamp fields of every source file.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

func intString(v int) string {
	return strconv.Itoa(v)
}
