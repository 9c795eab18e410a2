package thumbs

import "fmt"

// FormatTimestamp renders a sample time as the M:SS label shown on
// placeholder thumbnails.
func FormatTimestamp(t float64) string {
	if t < 0 {
		t = 0
	}
	total := int(t)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
