// Package validation holds format checks for broadcast identifiers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var roomIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var uniqueIDRegex = regexp.MustCompile(`^@?[A-Za-z0-9._]{2,30}$`)

// ValidateRoomID validates the platform room identifier format.
func ValidateRoomID(roomID string) error {
	if !roomIDRegex.MatchString(roomID) {
		return fmt.Errorf("room_id must be 1-64 characters of letters, numbers, underscores, and hyphens")
	}
	return nil
}

// ValidateUniqueID validates a broadcaster handle, with or without the
// leading "@".
func ValidateUniqueID(uniqueID string) error {
	if !uniqueIDRegex.MatchString(uniqueID) {
		return fmt.Errorf("unique_id must be 2-30 characters of letters, numbers, dots, and underscores")
	}
	if strings.HasSuffix(uniqueID, ".") {
		return fmt.Errorf("unique_id cannot end with a dot")
	}
	return nil
}
