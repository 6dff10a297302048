// Package jibe exposes the game engines as the jibe.v1.GameService gRPC API.
//
// Payloads are google.protobuf.Struct values with camelCase fields.
package jibe

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
	"github.com/louisbranch/jibe/internal/platform/errors/i18n"
	"github.com/louisbranch/jibe/internal/platform/requestctx"
	"github.com/louisbranch/jibe/internal/services/jibe/api/grpc/metadata"
	"github.com/louisbranch/jibe/internal/services/jibe/domain"
	"github.com/louisbranch/jibe/internal/services/jibe/game"
)

// Service implements GameServiceServer on top of the game engines.
type Service struct {
	game   *game.Game
	logger zerolog.Logger
}

// NewService creates a game service.
func NewService(g *game.Game, logger zerolog.Logger) *Service {
	return &Service{game: g, logger: logger}
}

// CreateSession creates a session owned by the caller.
func (s *Service) CreateSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(in); err != nil {
		return nil, err
	}
	identity, err := metadata.RequireIdentity(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	session, err := s.game.Registry.CreateSession(ctx, profileFor(identity, in))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return respond(map[string]any{"sessionId": session.ID})
}

// JoinSession adds the caller to a session.
func (s *Service) JoinSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(in); err != nil {
		return nil, err
	}
	identity, err := metadata.RequireIdentity(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	player, err := s.game.Registry.JoinSession(ctx, stringField(in, "sessionId"), profileFor(identity, in))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return respond(map[string]any{
		"sessionId":    player.SessionID,
		"playerNumber": player.Number,
	})
}

// StartSession moves a session to started and opens round 1.
func (s *Service) StartSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(in); err != nil {
		return nil, err
	}
	identity, err := metadata.RequireIdentity(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	session, err := s.game.Registry.StartSession(ctx, stringField(in, "sessionId"), identity.UserID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return respond(map[string]any{
		"sessionId": session.ID,
		"status":    string(session.Status),
	})
}

// SubmitTurn records the caller's answer for a round.
func (s *Service) SubmitTurn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(in); err != nil {
		return nil, err
	}
	identity, err := metadata.RequireIdentity(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	round, err := intField(in, "round")
	if err != nil {
		return nil, err
	}
	turn, err := s.game.Rounds.SubmitTurn(ctx, stringField(in, "sessionId"), round, identity.UserID, rawStringField(in, "answer"))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return respond(map[string]any{
		"sessionId": turn.SessionID,
		"round":     turn.RoundNumber,
		"playerId":  turn.PlayerID,
		"answer":    turn.Answer,
	})
}

// ScoreRound tallies a scoring round and reports whether the game ended.
func (s *Service) ScoreRound(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(in); err != nil {
		return nil, err
	}
	if _, err := metadata.RequireIdentity(ctx); err != nil {
		return nil, toStatus(ctx, err)
	}
	round, err := intField(in, "round")
	if err != nil {
		return nil, err
	}
	awards, err := awardsField(in, "answers")
	if err != nil {
		return nil, err
	}
	result, err := s.game.Scoring.ScoreRound(ctx, stringField(in, "sessionId"), round, awards)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	out := map[string]any{
		"sessionId":      result.SessionID,
		"winnerDeclared": result.WinnerDeclared,
	}
	if result.Winner != nil {
		out["winner"] = winnerToMap(*result.Winner)
	}
	if result.NextRound > 0 {
		out["nextRound"] = result.NextRound
	}
	return respond(out)
}

// GetSession returns a session with its players.
func (s *Service) GetSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(in); err != nil {
		return nil, err
	}
	view, err := s.game.Registry.GetSession(ctx, stringField(in, "sessionId"))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	players := make([]any, 0, len(view.Players))
	for _, player := range view.Players {
		players = append(players, playerToMap(player))
	}
	session := sessionToMap(view.Session)
	session["players"] = players
	return respond(map[string]any{"session": session})
}

// GetRound returns a round with its turns.
func (s *Service) GetRound(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(in); err != nil {
		return nil, err
	}
	number, err := intField(in, "round")
	if err != nil {
		return nil, err
	}
	view, err := s.game.Rounds.GetRound(ctx, stringField(in, "sessionId"), number)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	turns := make([]any, 0, len(view.Turns))
	for _, turn := range view.Turns {
		turns = append(turns, turnToMap(turn))
	}
	round := roundToMap(view.Round)
	round["turns"] = turns
	return respond(map[string]any{"round": round})
}

func (s *Service) ready(in *structpb.Struct) error {
	if in == nil {
		return status.Error(codes.InvalidArgument, "request is required")
	}
	if s == nil || s.game == nil {
		return status.Error(codes.Internal, "game is not configured")
	}
	return nil
}

// toStatus converts engine errors to gRPC statuses with a localized message.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		locale := requestctx.LocaleFromContext(ctx)
		if locale == "" {
			locale = i18n.BaseLocale
		}
		message := i18n.GetCatalog(locale).Format(string(appErr.Code), appErr.Metadata)
		return appErr.ToGRPCStatus(locale, message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, "internal error")
}

// profileFor prefers request display fields and falls back to identity claims.
func profileFor(identity metadata.Identity, in *structpb.Struct) domain.Profile {
	profile := domain.Profile{
		UserID:      identity.UserID,
		DisplayName: stringField(in, "displayName"),
		Avatar:      stringField(in, "avatar"),
	}
	if profile.DisplayName == "" {
		profile.DisplayName = identity.DisplayName
	}
	if profile.Avatar == "" {
		profile.Avatar = identity.Avatar
	}
	return profile
}

func stringField(in *structpb.Struct, name string) string {
	return strings.TrimSpace(rawStringField(in, name))
}

func rawStringField(in *structpb.Struct, name string) string {
	value, ok := in.GetFields()[name]
	if !ok {
		return ""
	}
	return value.GetStringValue()
}

func intField(in *structpb.Struct, name string) (int, error) {
	value, ok := in.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	n, ok := integral(value)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return n, nil
}

func awardsField(in *structpb.Struct, name string) (map[string]int, error) {
	value, ok := in.GetFields()[name]
	if !ok {
		return map[string]int{}, nil
	}
	fields := value.GetStructValue()
	if fields == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be an object of player id to points", name)
	}
	awards := make(map[string]int, len(fields.GetFields()))
	for playerID, points := range fields.GetFields() {
		n, ok := integral(points)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s.%s must be an integer", name, playerID)
		}
		awards[playerID] = n
	}
	return awards, nil
}

func integral(value *structpb.Value) (int, bool) {
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	f := number.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func respond(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func sessionToMap(session domain.Session) map[string]any {
	out := map[string]any{
		"sessionId":    session.ID,
		"status":       string(session.Status),
		"creatorId":    session.CreatorID,
		"currentRound": session.CurrentRound,
		"createdAt":    formatTime(session.CreatedAt),
		"updatedAt":    formatTime(session.UpdatedAt),
	}
	if !session.StartedAt.IsZero() {
		out["startedAt"] = formatTime(session.StartedAt)
	}
	if session.Winner != nil {
		out["winner"] = winnerToMap(*session.Winner)
	}
	return out
}

func winnerToMap(winner domain.Winner) map[string]any {
	return map[string]any{
		"userId":      winner.UserID,
		"displayName": winner.DisplayName,
		"avatar":      winner.Avatar,
	}
}

func playerToMap(player domain.Player) map[string]any {
	return map[string]any{
		"userId":       player.UserID,
		"displayName":  player.DisplayName,
		"avatar":       player.Avatar,
		"playerNumber": player.Number,
		"score":        player.Score,
		"joinedAt":     formatTime(player.JoinedAt),
	}
}

func roundToMap(round domain.Round) map[string]any {
	return map[string]any{
		"sessionId": round.SessionID,
		"round":     round.Number,
		"word":      round.Word,
		"status":    string(round.Status),
		"createdAt": formatTime(round.CreatedAt),
		"updatedAt": formatTime(round.UpdatedAt),
	}
}

func turnToMap(turn domain.Turn) map[string]any {
	out := map[string]any{
		"playerId":    turn.PlayerID,
		"answer":      turn.Answer,
		"submittedAt": formatTime(turn.SubmittedAt),
	}
	if turn.Score != nil {
		out["score"] = *turn.Score
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
