package referral

import (
	"fmt"

	"github.com/speps/go-hashids/v2"
)

// MinCodeLength is the shortest referral code ever produced.
const MinCodeLength = 6

// Codec turns referral link ids into short reversible codes.
type Codec struct {
	h *hashids.HashID
}

// NewCodec builds a codec salted with the deployment secret.
func NewCodec(salt string) (*Codec, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = MinCodeLength
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("failed to create hashids codec: %w", err)
	}
	return &Codec{h: h}, nil
}

func (c *Codec) Encode(id int64) (string, error) {
	code, err := c.h.EncodeInt64([]int64{id})
	if err != nil {
		return "", fmt.Errorf("failed to encode referral id: %w", err)
	}
	return code, nil
}

// Decode returns ErrInvalidCode unless code decodes to exactly one id.
func (c *Codec) Decode(code string) (int64, error) {
	if code == "" {
		return 0, ErrInvalidCode
	}
	ids, err := c.h.DecodeInt64WithError(code)
	if err != nil || len(ids) != 1 {
		return 0, ErrInvalidCode
	}
	return ids[0], nil
}
