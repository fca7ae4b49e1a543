// Package auth выдаёт и проверяет права на запись в каталог.
// Логин — проверка пароля администратора, результат — подписанный HS256 токен с ограниченным сроком.
package auth

import (
	"fmt"
	"time"

	"StudyVault/internal/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin  = "admin"
	TokenType  = "bearer"
	defaultTTL = 24 * time.Hour
)

// Options настраивает Gate.
type Options struct {
	Secret string
	// Password хешируется bcrypt при создании Gate; PasswordHash имеет приоритет.
	Password     string
	PasswordHash string
	TTL          time.Duration
	Now          func() time.Time
}

// Token — результат успешного логина.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Capability — право на изменение каталога, действительное до ExpiresAt.
type Capability struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Gate проверяет пароль и токены.
type Gate struct {
	secret []byte
	hash   []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewGate создаёт Gate. Пароль в открытом виде в памяти не хранится.
func NewGate(opts Options) (*Gate, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("auth: empty secret")
	}
	hash := []byte(opts.PasswordHash)
	if len(hash) == 0 {
		if opts.Password == "" {
			return nil, fmt.Errorf("auth: admin password is not configured")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("auth: hash password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("auth: invalid password hash: %w", err)
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gate{secret: []byte(opts.Secret), hash: hash, ttl: opts.TTL, now: opts.Now}, nil
}

// Login сверяет пароль и выпускает токен.
func (g *Gate) Login(password string) (Token, error) {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return Token{}, fmt.Errorf("%w: invalid password", apperr.ErrUnauthorized)
	}
	now := g.now()
	exp := now.Add(g.ttl)
	c := claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   RoleAdmin,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(g.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: TokenType, ExpiresAt: exp.UTC().Truncate(time.Second)}, nil
}

// Authorize проверяет подпись, срок и роль токена.
// Любая ошибка разбора трактуется как отсутствие прав.
func (g *Gate) Authorize(token string) (*Capability, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", apperr.ErrUnauthorized)
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	if c.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: role %q", apperr.ErrUnauthorized, c.Role)
	}
	return &Capability{Subject: c.Subject, TokenID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Check — право действительно на момент вызова.
func (g *Gate) Check(c *Capability) error {
	if c == nil {
		return fmt.Errorf("%w: authentication required", apperr.ErrUnauthorized)
	}
	if !g.now().Before(c.ExpiresAt) {
		return fmt.Errorf("%w: token expired", apperr.ErrUnauthorized)
	}
	return nil
}
