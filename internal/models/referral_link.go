package models

import "time"

type ReferralLink struct {
	ID        int64     `json:"id" db:"id"`
	MSISDN    string    `json:"msisdn" db:"msisdn"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
