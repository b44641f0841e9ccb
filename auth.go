package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminRateWindow   = 60 * time.Second
	maxAdminAttempts  = 10
	maxParticipantLen = 64
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrAdminDisabled  = errors.New("admin access disabled")
	ErrBadCredentials = errors.New("invalid username or password")
	ErrRateLimited    = errors.New("too many attempts, try again later")
)

// Auth issues and checks participant identity tokens and guards the
// operator endpoints
type Auth struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	adminUser string
	adminHash []byte

	// Rate limiting for admin attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates an Auth. db may be nil.
func NewAuth(cfg AuthConfig, db *DB, log *zap.Logger) *Auth {
	return &Auth{
		jwtSecret: loadOrCreateSecret(cfg.JWTSecret, db, log),
		tokenTTL:  cfg.TokenTTL,
		adminUser: cfg.AdminUser,
		adminHash: []byte(cfg.AdminPasswordHash),
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret prefers the configured secret, then the one persisted
// in the database, and otherwise generates (and persists) a new one
func loadOrCreateSecret(configured string, db *DB, log *zap.Logger) []byte {
	if configured != "" {
		if b, err := hex.DecodeString(configured); err == nil && len(b) >= 16 {
			return b
		}
		return []byte(configured)
	}
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Warn("could not persist JWT secret", zap.Error(err))
		}
	}
	return secret
}

// IssueGuest mints a fresh participant id and a token carrying it
func (a *Auth) IssueGuest() (string, string, error) {
	id := GenerateUUID()
	token, err := a.IssueToken(id)
	if err != nil {
		return "", "", err
	}
	return id, token, nil
}

// IssueToken signs a token whose pid claim is participantID
func (a *Auth) IssueToken(participantID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"pid": participantID,
		"exp": now.Add(a.tokenTTL).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateToken returns the participant id carried by tokenStr
func (a *Auth) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	pid, ok := claims["pid"].(string)
	if !ok || pid == "" || len(pid) > maxParticipantLen {
		return "", fmt.Errorf("%w: bad pid claim", ErrInvalidToken)
	}
	return pid, nil
}

// CheckAdmin verifies operator credentials against the bcrypt hash
func (a *Auth) CheckAdmin(user, password, ip string) error {
	if len(a.adminHash) == 0 {
		return ErrAdminDisabled
	}
	if !a.checkRate(ip) {
		return ErrRateLimited
	}
	if user != a.adminUser {
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(adminRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxAdminAttempts
}
