package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultIssuer = "where2meet"
	clockSkew     = 30 * time.Second
)

// Claims carry the caller identity resolved by the external auth service.
type Claims struct {
	UserID      int64   `json:"user_id"`
	Name        string  `json:"name"`
	Groups      []int64 `json:"groups"`
	AdminGroups []int64 `json:"admin_groups"`
	jwt.RegisteredClaims
}

// Manager verifies HS256 bearer tokens of a single issuer.
type Manager struct {
	secret []byte
	parser *jwt.Parser
	issuer string
}

func NewManager(secret, issuer string) *Manager {
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &Manager{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Generate signs claims for ttl. The service itself only parses tokens;
// Generate exists for tooling and tests.
func (m *Manager) Generate(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    m.issuer,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	var claims Claims
	if _, err := m.parser.ParseWithClaims(tokenStr, &claims, m.key); err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

func (m *Manager) key(*jwt.Token) (any, error) {
	return m.secret, nil
}
