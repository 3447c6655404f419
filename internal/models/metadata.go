package models

import (
	"encoding/json"
	"fmt"
)

// TxMeta is the typed payload stored in a transaction's metadata column.
// The concrete shape is keyed by the transaction type.
type TxMeta interface {
	txMeta()
}

// MilestoneMeta rides on milestone_fund and milestone_release entries.
type MilestoneMeta struct {
	MilestoneID string `json:"milestone_id"`
}

type ConnectsPurchaseMeta struct {
	Connects int `json:"connects"`
}

type SubscriptionMeta struct {
	SubscriptionType SubscriptionType `json:"subscription_type"`
	Months           int              `json:"months"`
}

type PromotionMeta struct {
	Weeks int `json:"weeks"`
}

type WithdrawalMeta struct {
	Card      string `json:"card"`
	IsExpress bool   `json:"is_express"`
}

func (MilestoneMeta) txMeta()        {}
func (ConnectsPurchaseMeta) txMeta() {}
func (SubscriptionMeta) txMeta()     {}
func (PromotionMeta) txMeta()        {}
func (WithdrawalMeta) txMeta()       {}

// EncodeMeta serializes a metadata payload. A nil payload encodes as an
// empty JSON object so the column is never NULL.
func EncodeMeta(m TxMeta) (string, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(raw), nil
}

// DecodeMeta parses a metadata column by transaction type. Types that
// carry no metadata decode to nil.
func DecodeMeta(t TransactionType, raw string) (TxMeta, error) {
	if raw == "" {
		raw = "{}"
	}
	switch t {
	case TypeMilestoneFund, TypeMilestoneRelease:
		var m MilestoneMeta
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode milestone metadata: %w", err)
		}
		return m, nil
	case TypeConnectsPurchase:
		var m ConnectsPurchaseMeta
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode connects metadata: %w", err)
		}
		return m, nil
	case TypeSubscriptionPayment:
		var m SubscriptionMeta
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode subscription metadata: %w", err)
		}
		return m, nil
	case TypeProfilePromotion:
		var m PromotionMeta
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode promotion metadata: %w", err)
		}
		return m, nil
	case TypeWithdrawal:
		var m WithdrawalMeta
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decode withdrawal metadata: %w", err)
		}
		return m, nil
	}
	return nil, nil
}
