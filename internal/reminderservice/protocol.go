package reminderservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/starford/mindpulse/internal/apperr"
	"github.com/starford/mindpulse/internal/models"
)

// Command types of the message protocol.
const (
	CmdCreate = "CREATE_REMINDER"
	CmdDelete = "DELETE_REMINDER"
	CmdToggle = "TOGGLE_DONE"
	CmdList   = "GET_REMINDERS"
)

// Command is one protocol message. DELETE and TOGGLE carry the id either at
// the top level or inside payload.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	ID      string          `json:"id,omitempty"`
}

// Result is the reply to every command except GET_REMINDERS, which replies
// with the bare collection.
type Result struct {
	Success  bool             `json:"success"`
	Reminder *models.Reminder `json:"reminder,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Failure builds the reply for a failed command.
func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Dispatch executes cmd. The reply is a Result or, for GET_REMINDERS, a
// []models.Reminder. On error the reply is nil and the caller answers with
// Failure(err).
func (s *Service) Dispatch(ctx context.Context, cmd Command) (any, error) {
	switch cmd.Type {
	case CmdCreate:
		var in models.NewReminderInput
		if err := decodePayload(cmd.Payload, &in); err != nil {
			return nil, err
		}
		r, err := s.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		return Result{Success: true, Reminder: &r}, nil

	case CmdDelete, CmdToggle:
		id, err := commandID(cmd)
		if err != nil {
			return nil, err
		}
		if cmd.Type == CmdDelete {
			err = s.Delete(ctx, id)
		} else {
			err = s.ToggleDone(ctx, id)
		}
		if err != nil {
			return nil, err
		}
		return Result{Success: true}, nil

	case CmdList:
		return s.List(ctx)

	default:
		return nil, fmt.Errorf("%w: unknown command %q", apperr.ErrValidation, cmd.Type)
	}
}

func commandID(cmd Command) (string, error) {
	if cmd.ID != "" {
		return cmd.ID, nil
	}
	var p struct {
		ID string `json:"id"`
	}
	if err := decodePayload(cmd.Payload, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", fmt.Errorf("%w: id is required", apperr.ErrValidation)
	}
	return p.ID, nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: payload is required", apperr.ErrValidation)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: payload: %w", apperr.ErrValidation, err)
	}
	return nil
}
