package conf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// KeyType constrains the values a known key accepts.
type KeyType int

const (
	TypeString KeyType = iota
	TypeInt
	TypeBool
	TypePort
	// TypeSize accepts an integer with an optional kB/MB/GB style
	// suffix, e.g. disk_free_limit.absolute = 2GB.
	TypeSize
)

// Schema maps known keys to their types. Keys outside the schema
// validate as free-form strings.
type Schema map[string]KeyType

// DefaultSchema covers the common server settings frm edits.
var DefaultSchema = Schema{
	"listeners.tcp.default":             TypePort,
	"listeners.ssl.default":             TypePort,
	"management.tcp.port":               TypePort,
	"num_acceptors.tcp":                 TypeInt,
	"channel_max":                       TypeInt,
	"heartbeat":                         TypeInt,
	"log.console":                       TypeBool,
	"log.file.rotation.count":           TypeInt,
	"loopback_users.guest":              TypeBool,
	"disk_free_limit.absolute":          TypeSize,
	"vm_memory_high_watermark.absolute": TypeSize,
	"cluster_name":                      TypeString,
	"default_user":                      TypeString,
	"default_pass":                      TypeString,
}

// ValidationError reports one value that its key's type rejects.
type ValidationError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s = %s: %s", e.Key, e.Value, e.Reason)
}

var sizePattern = regexp.MustCompile(`^[0-9]+(?:[kKMGT]i?B)?$`)

// Validate checks every set key against the schema and returns all
// violations.
func Validate(doc *Document, schema Schema) []ValidationError {
	var out []ValidationError
	for _, key := range doc.Keys() {
		kt, known := schema[key]
		if !known {
			continue
		}
		value, _ := doc.Get(key)
		if reason := checkValue(kt, value); reason != "" {
			out = append(out, ValidationError{Key: key, Value: value, Reason: reason})
		}
	}
	return out
}

func checkValue(kt KeyType, value string) string {
	switch kt {
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return "expected an integer"
		}
	case TypePort:
		port, err := strconv.Atoi(value)
		if err != nil || port < 1 || port > 65535 {
			return "expected a port between 1 and 65535"
		}
	case TypeBool:
		switch strings.ToLower(value) {
		case "true", "false":
		default:
			return "expected true or false"
		}
	case TypeSize:
		if !sizePattern.MatchString(value) {
			return "expected a size such as 100MB or 2GB"
		}
	}
	return ""
}
