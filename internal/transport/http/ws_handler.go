package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/beamchat/beamchat-server/internal/auth"
	"github.com/beamchat/beamchat-server/internal/core"
	"github.com/beamchat/beamchat-server/internal/proto"
	"github.com/beamchat/beamchat-server/internal/service/groups"
)

// WSHandler upgrades HTTP connections and bridges them to the live
// coordination layer: registry presence, group rooms and the event relay.
type WSHandler struct {
	auth     *auth.Service
	groups   *groups.Service
	registry *core.Registry
	rooms    *core.Rooms
	relay    *core.Relay
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(deps Deps, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		auth:     deps.Auth,
		groups:   deps.Groups,
		registry: deps.Registry,
		rooms:    deps.Rooms,
		relay:    deps.Relay,
		log:      logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	claims, err := h.authenticate(r)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws auth failed")
		stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
		return
	}

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer wsConn.Close(websocket.StatusInternalError, "internal error")

	conn := core.NewConn(claims.UserID)

	// Room membership is rebuilt from persisted groups on every connect.
	memberships, err := h.groups.ListForUser(ctx, claims.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", claims.UserID).Msg("failed to load group memberships")
		wsConn.Close(websocket.StatusInternalError, "internal error")
		return
	}

	// Join rooms before registering so the first online_users broadcast
	// observed by anyone implies this connection's room presence is complete.
	for _, g := range memberships {
		h.rooms.Join(conn, g.ID)
	}
	h.registry.Register(conn)
	defer func() {
		h.rooms.Drop(conn)
		h.registry.Unregister(conn)
	}()

	h.log.Info().Str("user_id", claims.UserID).Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, wsConn, conn)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, wsConn, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("user_id", claims.UserID).Msg("ws connection closed with error")
		}
	}

	h.log.Info().Str("user_id", claims.UserID).Msg("ws disconnected")
	wsConn.Close(status, reason)
}

func (h *WSHandler) authenticate(r *stdhttp.Request) (*auth.Claims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
	}
	if token == "" {
		if cookie, err := r.Cookie(authCookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, errors.New("missing token")
	}
	return h.auth.ValidateToken(token)
}

func (h *WSHandler) readLoop(ctx context.Context, wsConn *websocket.Conn, conn *core.Conn) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, wsConn, &inbound); err != nil {
			return err
		}

		protoErr, err := h.dispatch(ctx, conn, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("user_id", conn.UserID).Msg("failed to handle ws inbound")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, wsConn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, wsConn *websocket.Conn, conn *core.Conn) error {
	for {
		select {
		case ev := <-conn.Events():
			outbound := proto.Outbound{
				Type:  proto.OutboundTypeEvent,
				Event: ev.Name,
				Data:  ev.Data,
			}
			if err := wsjson.Write(ctx, wsConn, outbound); err != nil {
				h.log.Error().Err(err).Str("user_id", conn.UserID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatch routes one inbound frame. Ephemeral events are relayed
// fire-and-forget; a missing or offline target is a no-op, not an error.
func (h *WSHandler) dispatch(ctx context.Context, conn *core.Conn, inbound proto.Inbound) (*proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeTyping, proto.InboundTypeStopTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.RecipientID == "" {
			return &proto.Error{Code: core.CodeInvalidArgument, Msg: "recipient_id is required"}, nil
		}
		name := core.EventTyping
		if inbound.Type == proto.InboundTypeStopTyping {
			name = core.EventStopTyping
		}
		h.relay.ToUser(data.RecipientID, core.Event{
			Name: name,
			Data: proto.TypingEvent{SenderID: conn.UserID},
		})
		return nil, nil

	case proto.InboundTypeGroupTyping, proto.InboundTypeGroupStopTyping:
		var data proto.GroupTypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.GroupID == "" {
			return &proto.Error{Code: core.CodeInvalidArgument, Msg: "group_id is required"}, nil
		}
		name := core.EventGroupTyping
		if inbound.Type == proto.InboundTypeGroupStopTyping {
			name = core.EventGroupStopTyping
		}
		h.relay.ToRoomExcept(data.GroupID, conn, core.Event{
			Name: name,
			Data: proto.GroupTypingEvent{GroupID: data.GroupID, SenderID: conn.UserID},
		})
		return nil, nil

	case proto.InboundTypeJoinGroup:
		var data proto.JoinGroupData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.GroupID == "" {
			return &proto.Error{Code: core.CodeInvalidArgument, Msg: "group_id is required"}, nil
		}
		// Membership gate: only actual group members may subscribe.
		if _, err := h.groups.Group(ctx, data.GroupID, conn.UserID); err != nil {
			var domainErr *core.Error
			if errors.As(err, &domainErr) {
				return &proto.Error{Code: domainErr.Code, Msg: domainErr.Message}, nil
			}
			return nil, err
		}
		h.rooms.Join(conn, data.GroupID)
		return nil, nil

	case proto.InboundTypeCallOffer:
		var data proto.CallOfferData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.To == "" {
			return &proto.Error{Code: core.CodeInvalidArgument, Msg: "to is required"}, nil
		}
		h.relay.CallOffer(conn, data.To, core.Event{
			Name: core.EventCallOffer,
			Data: proto.CallOfferEvent{
				From:   conn.UserID,
				Signal: data.Signal,
				Name:   data.Name,
				Avatar: data.Avatar,
			},
		})
		return nil, nil

	case proto.InboundTypeCallAnswer:
		var data proto.CallAnswerData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.To == "" {
			return &proto.Error{Code: core.CodeInvalidArgument, Msg: "to is required"}, nil
		}
		h.relay.ToUser(data.To, core.Event{
			Name: core.EventCallAnswer,
			Data: proto.CallAnswerEvent{From: conn.UserID, Signal: data.Signal},
		})
		return nil, nil

	case proto.InboundTypeCallDeclined, proto.InboundTypeCallEnded:
		var data proto.CallHangupData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.To == "" {
			return &proto.Error{Code: core.CodeInvalidArgument, Msg: "to is required"}, nil
		}
		name := core.EventCallDeclined
		if inbound.Type == proto.InboundTypeCallEnded {
			name = core.EventCallEnded
		}
		h.relay.ToUser(data.To, core.Event{
			Name: name,
			Data: proto.CallHangupEvent{From: conn.UserID},
		})
		return nil, nil

	default:
		return &proto.Error{Code: core.CodeInvalidArgument, Msg: "unknown message type"}, nil
	}
}
