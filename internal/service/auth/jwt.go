package auth

import (
	"context"
	"fmt"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by tokens from the identity service.
type Claims struct {
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 bearer tokens. It never issues them.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &JWTVerifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

func (v *JWTVerifier) Authenticate(_ context.Context, token string) (*models.Principal, error) {
	if token == "" || len(v.secret) == 0 {
		return nil, domrepo.ErrUnauthorized
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domrepo.ErrUnauthorized, err)
	}
	if claims.UserID == "" || claims.TenantID == "" {
		return nil, fmt.Errorf("%w: missing userId or tenantId", domrepo.ErrUnauthorized)
	}
	return &models.Principal{UserID: claims.UserID, TenantID: claims.TenantID}, nil
}
