// Package metadata defines the jibe request headers and the interceptor that
// turns them into request context: correlation id, caller identity and locale.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/jibe/internal/platform/errors"
	"github.com/louisbranch/jibe/internal/platform/errors/i18n"
	"github.com/louisbranch/jibe/internal/platform/id"
	"github.com/louisbranch/jibe/internal/platform/requestctx"
)

const (
	// RequestIDHeader correlates a call across logs and responses.
	RequestIDHeader = "x-jibe-request-id"
	// UserIDHeader carries the caller's user id when bearer auth is off.
	UserIDHeader = "x-jibe-user-id"
	// DisplayNameHeader carries the caller's display name.
	DisplayNameHeader = "x-jibe-display-name"
	// AvatarHeader carries the caller's avatar reference.
	AvatarHeader = "x-jibe-avatar"
	// AuthorizationHeader carries "Bearer <jwt>" when an HMAC key is configured.
	AuthorizationHeader = "authorization"
	// AcceptLanguageHeader selects the locale of user-facing error messages.
	AcceptLanguageHeader = "accept-language"
)

const bearerPrefix = "bearer "

// Identity is the caller as resolved from request metadata.
type Identity struct {
	UserID      string
	DisplayName string
	Avatar      string
}

// Claims are the bearer token claims jibe reads.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type identityContextKey struct{}

// WithIdentity stores the caller identity in context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = requestctx.WithUserID(ctx, identity.UserID)
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the caller identity, if one was resolved.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || identity.UserID == "" {
		return Identity{}, false
	}
	return identity, true
}

// RequireIdentity returns the caller identity or an UNAUTHENTICATED error.
func RequireIdentity(ctx context.Context) (Identity, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return Identity{}, apperrors.New(apperrors.CodeUnauthenticated, "caller identity is required")
	}
	return identity, nil
}

// IsPrintableASCII reports whether a string contains only printable ASCII characters.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable ASCII metadata value for a key.
func FirstMetadataValue(md metadata.MD, key string) string {
	if len(md) == 0 {
		return ""
	}
	for mdKey, values := range md {
		if !strings.EqualFold(mdKey, key) {
			continue
		}
		for _, value := range values {
			if IsPrintableASCII(value) {
				return strings.TrimSpace(value)
			}
		}
	}
	return ""
}

// Config controls how the interceptor resolves callers.
type Config struct {
	// HMACKey switches identity to HS256 bearer tokens when non-empty.
	HMACKey     []byte
	IDGenerator func() (string, error)
	Now         func() time.Time
}

// Resolver turns incoming metadata into request context.
type Resolver struct {
	hmacKey     []byte
	idGenerator func() (string, error)
	now         func() time.Time
}

// NewResolver builds a resolver from cfg.
func NewResolver(cfg Config) *Resolver {
	r := &Resolver{
		hmacKey:     cfg.HMACKey,
		idGenerator: cfg.IDGenerator,
		now:         cfg.Now,
	}
	if r.idGenerator == nil {
		r.idGenerator = id.NewID
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// UnaryServerInterceptor attaches request id, locale and identity to every call.
// A malformed bearer token fails the call; a missing identity is left for the
// handler to reject, since read operations do not need one.
func (r *Resolver) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		updated, requestID, err := r.Resolve(ctx)
		if requestID != "" {
			if headerErr := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID)); headerErr != nil {
				return nil, status.Errorf(codes.Internal, "set response metadata: %v", headerErr)
			}
		}
		if err != nil {
			var appErr *apperrors.Error
			if errors.As(err, &appErr) {
				locale := requestctx.LocaleFromContext(updated)
				return nil, appErr.ToGRPCStatus(locale, i18n.GetCatalog(locale).Format(string(appErr.Code), appErr.Metadata))
			}
			return nil, status.Errorf(codes.Internal, "resolve request metadata: %v", err)
		}
		return handler(updated, req)
	}
}

// Resolve returns ctx enriched with request metadata and the request id used.
func (r *Resolver) Resolve(ctx context.Context) (context.Context, string, error) {
	md, _ := metadata.FromIncomingContext(ctx)

	requestID := FirstMetadataValue(md, RequestIDHeader)
	if requestID == "" {
		generated, err := r.idGenerator()
		if err != nil {
			return ctx, "", fmt.Errorf("generate request id: %w", err)
		}
		requestID = generated
	}
	ctx = requestctx.WithRequestID(ctx, requestID)
	ctx = requestctx.WithLocale(ctx, i18n.Negotiate(FirstMetadataValue(md, AcceptLanguageHeader)))

	identity, ok, err := r.identify(md)
	if err != nil {
		return ctx, requestID, err
	}
	if ok {
		ctx = WithIdentity(ctx, identity)
	}
	return ctx, requestID, nil
}

func (r *Resolver) identify(md metadata.MD) (Identity, bool, error) {
	if len(r.hmacKey) == 0 {
		identity := Identity{
			UserID:      FirstMetadataValue(md, UserIDHeader),
			DisplayName: FirstMetadataValue(md, DisplayNameHeader),
			Avatar:      FirstMetadataValue(md, AvatarHeader),
		}
		return identity, identity.UserID != "", nil
	}

	header := FirstMetadataValue(md, AuthorizationHeader)
	if header == "" {
		return Identity{}, false, nil
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return Identity{}, false, apperrors.New(apperrors.CodeUnauthenticated, "authorization must be a bearer token")
	}
	claims, err := r.parseToken(strings.TrimSpace(header[len(bearerPrefix):]))
	if err != nil {
		return Identity{}, false, apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid bearer token", err)
	}
	identity := Identity{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		Avatar:      claims.Picture,
	}
	if identity.UserID == "" {
		return Identity{}, false, apperrors.New(apperrors.CodeUnauthenticated, "bearer token has no subject")
	}
	return identity, true, nil
}

func (r *Resolver) parseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return r.hmacKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// SignToken issues an HS256 bearer token for identity, valid for ttl.
func SignToken(key []byte, identity Identity, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Name:    identity.DisplayName,
		Picture: identity.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identity.UserID,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
