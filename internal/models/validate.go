package models

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var errBlank = errors.New("cannot be blank")

// Validate checks a CREATE_REMINDER payload. It does not mutate the input.
func (in NewReminderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.By(notBlank)),
		validation.Field(&in.Time, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.Repeat, validation.By(knownRepeat)),
		validation.Field(&in.Emoji, validation.RuneLength(0, 16)),
	)
}

func notBlank(v any) error {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return errBlank
	}
	return nil
}

func knownRepeat(v any) error {
	s, _ := v.(string)
	_, err := ParseRepeat(s)
	return err
}
