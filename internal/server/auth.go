package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/medreports/internal/common"
)

const (
	AuthModeDevelopment = "development"
	AuthModeJWT         = "jwt"
)

var (
	errMissingAuth = errors.New("missing authorization header")
	errBadScheme   = errors.New("invalid authorization format")
	errBadToken    = errors.New("invalid token")
)

// Claims are the bearer token claims; the subject is the report owner.
type Claims struct {
	jwt.RegisteredClaims
}

// Authenticator resolves the owner of a request from its Authorization header.
type Authenticator struct {
	mode     string
	key      []byte
	issuer   string
	audience string
	devOwner string
}

func NewAuthenticator(mode string, cfg common.AuthConfig) *Authenticator {
	return &Authenticator{
		mode:     mode,
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		devOwner: cfg.DevOwner,
	}
}

// Owner returns the token subject. In development mode a missing header
// resolves to the configured dev owner; a header that is present is still verified.
func (a *Authenticator) Owner(header string) (string, error) {
	if header == "" {
		if a.mode == AuthModeDevelopment && a.devOwner != "" {
			return a.devOwner, nil
		}
		return "", errMissingAuth
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errBadScheme
	}
	if len(a.key) == 0 {
		return "", errBadToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(*jwt.Token) (interface{}, error) {
		return a.key, nil
	}, opts...)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", errBadToken
	}
	return claims.Subject, nil
}

// Middleware puts the owner on the request context or answers 401.
func (a *Authenticator) Middleware(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			owner, err := a.Owner(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				logger.Debug("http.auth.rejected", zap.String("path", c.Path()), zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.SetRequest(c.Request().WithContext(common.WithOwnerID(c.Request().Context(), owner)))
			return next(c)
		}
	}
}

// UnaryInterceptor is the gRPC counterpart of Middleware. Health checks are
// not authenticated.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}
		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("authorization"); len(v) > 0 {
				header = v[0]
			}
		}
		owner, err := a.Owner(header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(common.WithOwnerID(ctx, owner), req)
	}
}
