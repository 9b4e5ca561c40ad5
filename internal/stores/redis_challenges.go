package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/sessionauth/identity"
	"github.com/MrEthical07/sessionauth/store"
	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix      = "two_fa_code"
	challengeRecordVersion1 = 1
)

var errChallengeRecordCorrupt = errors.New("challenge record corrupt")

// RedisChallenges stores one challenge per email under
// "<prefix>:<normalized email>" with a native TTL.
type RedisChallenges struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

var _ store.ChallengeStore = (*RedisChallenges)(nil)

func NewRedisChallenges(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *RedisChallenges {
	if prefix == "" {
		prefix = challengeKeyPrefix
	}
	return &RedisChallenges{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces time.Now for the embedded record deadline.
func (s *RedisChallenges) WithClock(now func() time.Time) *RedisChallenges {
	s.now = now
	return s
}

func (s *RedisChallenges) key(email identity.Email) string {
	return s.prefix + ":" + email.String()
}

func (s *RedisChallenges) Put(ctx context.Context, email identity.Email, id identity.ChallengeID, code identity.TwoFACode) error {
	record := challengeRecord{
		ExpiresAt:   s.now().Add(s.ttl).Unix(),
		ChallengeID: id.String(),
		Code:        code.String(),
	}
	encoded, err := encodeChallenge(&record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(email), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisChallenges) Get(ctx context.Context, email identity.Email) (identity.ChallengeID, identity.TwoFACode, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return identity.ChallengeID{}, identity.TwoFACode{}, store.ErrChallengeNotFound
		}
		return identity.ChallengeID{}, identity.TwoFACode{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	record, err := decodeChallenge(data)
	if err != nil {
		return identity.ChallengeID{}, identity.TwoFACode{}, err
	}
	// Key TTL and the embedded deadline can disagree across clock skew; trust the earlier.
	if s.now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(email)).Result()
		return identity.ChallengeID{}, identity.TwoFACode{}, store.ErrChallengeNotFound
	}

	id, err := identity.ParseChallengeID(record.ChallengeID)
	if err != nil {
		return identity.ChallengeID{}, identity.TwoFACode{}, fmt.Errorf("%w: %v", errChallengeRecordCorrupt, err)
	}
	code, err := identity.ParseTwoFACode(record.Code)
	if err != nil {
		return identity.ChallengeID{}, identity.TwoFACode{}, fmt.Errorf("%w: %v", errChallengeRecordCorrupt, err)
	}
	return id, code, nil
}

func (s *RedisChallenges) Remove(ctx context.Context, email identity.Email, id identity.ChallengeID) (bool, error) {
	const maxRetries = 4
	key := s.key(email)

	for i := 0; i < maxRetries; i++ {
		var deleted bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallenge(data)
			if err != nil {
				return err
			}
			if record.ChallengeID != id.String() {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}
			deleted = s.now().Unix() <= record.ExpiresAt
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, nil
			}
			if errors.Is(err, errChallengeRecordCorrupt) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		return deleted, nil
	}

	// Every attempt lost a race on the key; some other caller owns the outcome.
	return false, nil
}

type challengeRecord struct {
	ExpiresAt   int64
	ChallengeID string
	Code        string
}

func encodeChallenge(record *challengeRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	for _, field := range []string{record.ChallengeID, record.Code} {
		if len(field) > 255 {
			return nil, errors.New("challenge field length exceeded")
		}
		buf.WriteByte(byte(len(field)))
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*challengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errChallengeRecordCorrupt
	}
	if version != challengeRecordVersion1 {
		return nil, fmt.Errorf("%w: version %d", errChallengeRecordCorrupt, version)
	}

	record := &challengeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, errChallengeRecordCorrupt
	}

	fields := [2]string{}
	for i := range fields {
		n, err := reader.ReadByte()
		if err != nil {
			return nil, errChallengeRecordCorrupt
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, errChallengeRecordCorrupt
		}
		fields[i] = string(raw)
	}
	if reader.Len() != 0 {
		return nil, errChallengeRecordCorrupt
	}
	record.ChallengeID, record.Code = fields[0], fields[1]

	return record, nil
}
