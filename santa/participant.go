/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package santa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Participant is one person taking part in a draw. ID is only ever compared
// for equality.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Assignment pairs a giver with the receiver they must gift.
// Revealed is left false by the generator and is owned by whoever displays it.
type Assignment struct {
	Giver    Participant `json:"giver"`
	Receiver Participant `json:"receiver"`
	Revealed bool        `json:"revealed"`
}

// NewParticipant returns a participant with a fresh random ID.
func NewParticipant(name string) Participant {
	return Participant{
		ID:   uuid.NewString(),
		Name: NormalizeName(name),
	}
}

func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// AbsoluteMinimum is the smallest roster that can be deranged.
const AbsoluteMinimum = 2

var (
	ErrTooFewParticipants = errors.New("not enough participants")
	ErrEmptyName          = errors.New("every participant needs a name")
	ErrDuplicateName      = errors.New("participant names must be unique")
)

// ValidateRoster checks the preconditions the generator expects: at least min
// participants, no blank names, and no names that collide case-insensitively.
// Every violation found is returned, joined.
func ValidateRoster(participants []Participant, min int) error {
	if min < AbsoluteMinimum {
		min = AbsoluteMinimum
	}

	var errs []error

	if len(participants) < min {
		errs = append(errs, fmt.Errorf("%w: need at least %d, have %d", ErrTooFewParticipants, min, len(participants)))
	}

	seen := make(map[string]bool, len(participants))
	var duplicates []string
	empty := false

	for _, p := range participants {
		name := NormalizeName(p.Name)
		if name == "" {
			empty = true
			continue
		}

		key := strings.ToLower(name)
		if seen[key] {
			duplicates = append(duplicates, name)
			continue
		}
		seen[key] = true
	}

	if empty {
		errs = append(errs, ErrEmptyName)
	}
	if len(duplicates) > 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateName, strings.Join(duplicates, ", ")))
	}

	return errors.Join(errs...)
}
