package probe

import (
	"strconv"
	"strings"
)

// ByteRange is one inclusive range from a Range header, clamped to the
// resource size.
type ByteRange struct {
	Start int64
	End   int64
}

// Ranges is the parsed Range header.
type Ranges struct {
	// Type is the range unit, usually "bytes".
	Type   string
	Ranges []ByteRange
}

// Range parses the Range header against a resource of size bytes. It returns
// nil and no error when the request has no Range header, ErrRangeMalformed
// when the header cannot be parsed and ErrRangeUnsatisfiable when no range
// falls inside the resource. Invalid ranges in a list are skipped.
func (r *Request) Range(size int64) (*Ranges, error) {
	header := strings.TrimSpace(r.Get("Range"))
	if header == "" {
		return nil, nil
	}
	unit, set, ok := strings.Cut(header, "=")
	if !ok {
		return nil, ErrRangeMalformed
	}

	result := &Ranges{Type: strings.TrimSpace(unit)}
	for _, part := range strings.Split(set, ",") {
		first, last, found := strings.Cut(strings.TrimSpace(part), "-")
		if !found {
			continue
		}
		start, startErr := strconv.ParseInt(first, 10, 64)
		end, endErr := strconv.ParseInt(last, 10, 64)
		switch {
		case first == "" && endErr == nil:
			start, end = max(size-end, 0), size-1
		case startErr == nil && last == "":
			end = size - 1
		case startErr != nil || endErr != nil:
			continue
		}
		if end > size-1 {
			end = size - 1
		}
		if start < 0 || start > end {
			continue
		}
		result.Ranges = append(result.Ranges, ByteRange{Start: start, End: end})
	}
	if len(result.Ranges) == 0 {
		return nil, ErrRangeUnsatisfiable
	}
	return result, nil
}
