package note

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatError reports a timecode string that is not MM:SS or HH:MM:SS with
// non-negative integer parts. Malformed timecodes always raise; no call
// site silently falls back to zero.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid timecode %q: want MM:SS or HH:MM:SS", e.Input)
}

// ParseTimecode converts an MM:SS or HH:MM:SS string to total seconds.
func ParseTimecode(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, &FormatError{Input: s}
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, &FormatError{Input: s}
		}
		nums[i] = n
	}
	if len(nums) == 2 {
		return nums[0]*60 + nums[1], nil
	}
	return nums[0]*3600 + nums[1]*60 + nums[2], nil
}

// FormatTimecode renders non-negative seconds as zero-padded HH:MM:SS.
func FormatTimecode(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
