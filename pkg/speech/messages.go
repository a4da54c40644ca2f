package speech

import "fmt"

// Fixed announcements for mode changes.
const (
	TextModeEnabled  = "Text extraction enabled"
	DetectionResumed = "Object detection resumed"
)

// DetectionMessage formats the announcement for the nearest object.
func DetectionMessage(label string, meters float64) string {
	return fmt.Sprintf("%s detected, at distance %.2f meters", label, meters)
}
