package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/morpion-backend/internal/apperror"
	"github.com/rocketscienceinc/morpion-backend/internal/entity"
	"github.com/rocketscienceinc/morpion-backend/internal/metrics"
)

// Inbound command actions.
const (
	CommandCreate   = "room:create"
	CommandJoin     = "room:join"
	CommandReady    = "room:ready"
	CommandStart    = "room:start"
	CommandMove     = "game:move"
	CommandSettings = "room:settings"
	CommandChat     = "chat:message"
	CommandLeave    = "room:leave"
	CommandResync   = "room:resync"
	CommandReset    = "room:reset"
)

// Command is an inbound client message.
type Command struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
	GameID string `json:"game_id,omitempty"`
}

type MovePayload struct {
	Cell *int `json:"cell"`
}

type SettingsPayload struct {
	FirstPlayerID string `json:"first_player_id,omitempty"`
}

type ChatPayload struct {
	Body string `json:"body"`
}

type commandHandler func(ctx context.Context, connID string, payload json.RawMessage) error

func (that *RoomManager) commandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		CommandCreate: func(ctx context.Context, connID string, payload json.RawMessage) error {
			var request JoinPayload
			if err := decodePayload(payload, &request); err != nil {
				return err
			}

			_, err := that.Create(ctx, connID, request.Name, request.GameID)
			return err
		},
		CommandJoin: func(ctx context.Context, connID string, payload json.RawMessage) error {
			var request JoinPayload
			if err := decodePayload(payload, &request); err != nil {
				return err
			}

			return that.Join(ctx, connID, request.RoomID, request.Name, request.GameID)
		},
		CommandReady: func(ctx context.Context, connID string, _ json.RawMessage) error {
			return that.ToggleReady(ctx, connID)
		},
		CommandStart: func(ctx context.Context, connID string, _ json.RawMessage) error {
			return that.Start(ctx, connID)
		},
		CommandMove: func(ctx context.Context, connID string, payload json.RawMessage) error {
			var request MovePayload
			if err := decodePayload(payload, &request); err != nil {
				return err
			}

			if request.Cell == nil {
				return fmt.Errorf("%w: cell is required", apperror.ErrInvalidCell)
			}

			return that.Move(ctx, connID, *request.Cell)
		},
		CommandSettings: func(ctx context.Context, connID string, payload json.RawMessage) error {
			var request SettingsPayload
			if err := decodePayload(payload, &request); err != nil {
				return err
			}

			return that.UpdateSettings(ctx, connID, request.FirstPlayerID)
		},
		CommandChat: func(ctx context.Context, connID string, payload json.RawMessage) error {
			var request ChatPayload
			if err := decodePayload(payload, &request); err != nil {
				return err
			}

			return that.Chat(ctx, connID, request.Body)
		},
		CommandLeave: func(ctx context.Context, connID string, _ json.RawMessage) error {
			return that.Leave(ctx, connID)
		},
		CommandResync: func(ctx context.Context, connID string, _ json.RawMessage) error {
			return that.Resync(ctx, connID)
		},
		CommandReset: func(ctx context.Context, connID string, _ json.RawMessage) error {
			return that.Reset(ctx, connID)
		},
	}
}

// Dispatch runs a command for connID. A rejected command is reported to that connection
// only, as an error event carrying a human readable message.
func (that *RoomManager) Dispatch(ctx context.Context, connID string, command Command) error {
	log := that.logger.With("method", "Dispatch", "action", command.Action, "playerID", connID)

	handler, ok := that.handlers[command.Action]
	if !ok {
		err := fmt.Errorf("%w: %q", apperror.ErrUnknownCommand, command.Action)
		that.Reject(connID, err)
		that.metrics.CommandHandled("unknown", metrics.ResultRejected)
		return err
	}

	err := handler(ctx, connID, command.Payload)
	if err == nil {
		that.metrics.CommandHandled(command.Action, metrics.ResultOK)
		return nil
	}

	public := apperror.Public(err)
	if errors.Is(public, apperror.ErrInternal) {
		log.Error("command failed", "error", err)
		that.metrics.CommandHandled(command.Action, metrics.ResultError)
	} else {
		log.Debug("command rejected", "error", err)
		that.metrics.CommandHandled(command.Action, metrics.ResultRejected)
	}

	that.Reject(connID, public)

	return err
}

// Reject sends an error event for err to connID.
func (that *RoomManager) Reject(connID string, err error) {
	that.notifier.Unicast(connID, entity.NewErrorEvent(apperror.Public(err).Error()))
}

func decodePayload(payload json.RawMessage, target any) error {
	if len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidInput, err)
	}

	return nil
}
