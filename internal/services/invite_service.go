package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/beatclash/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
)

type Invite struct {
	Code      string    `json:"code"`
	BattleID  string    `json:"battleId"`
	QRImage   string    `json:"qrImage"` // base64 PNG
	ExpiresAt time.Time `json:"expiresAt"`
}

// InviteService hands out short-lived codes that point at an open battle
type InviteService struct {
	redis   *redis.Client
	battles *BattleService
	clock   Clock
	ttl     time.Duration
	newCode func() string
}

func NewInviteService(redisClient *redis.Client, battles *BattleService, clock Clock, ttl time.Duration) *InviteService {
	return &InviteService{
		redis:   redisClient,
		battles: battles,
		clock:   clock,
		ttl:     ttl,
		newCode: generateInviteCode,
	}
}

func (s *InviteService) CreateInvite(ctx context.Context, battleID, callerID string) (*Invite, error) {
	if s.redis == nil {
		return nil, ErrInvitesUnavailable
	}

	battle, err := s.battles.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if battle.ChallengerID != callerID {
		return nil, ErrNotParticipant
	}
	if !battle.Status.IsOpen() || battle.HasOpponentEntry() {
		return nil, ErrBattleFull
	}

	code := s.newCode()
	if err := s.redis.Set(ctx, inviteKey(code), battle.ID, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store invite: %w", err)
	}

	qrImage, err := renderQR(code)
	if err != nil {
		return nil, err
	}

	return &Invite{
		Code:      code,
		BattleID:  battle.ID,
		QRImage:   qrImage,
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}, nil
}

// ResolveInvite returns the battle an invite code points at.
func (s *InviteService) ResolveInvite(ctx context.Context, code string) (*models.Battle, error) {
	if s.redis == nil {
		return nil, ErrInviteNotFound
	}

	battleID, err := s.redis.Get(ctx, inviteKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.battles.GetBattle(ctx, battleID)
}

func inviteKey(code string) string {
	return fmt.Sprintf("invite:%s", code)
}

func renderQR(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func generateInviteCode() string {
	b := make([]byte, 5)
	rand.Read(b)
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
}
