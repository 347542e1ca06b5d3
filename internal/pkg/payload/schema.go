// internal/pkg/payload/schema.go
package payload

import (
	"encoding/json"
	"fmt"
	"time"

	"namy-service/internal/domain/coupon"
	xerrors "namy-service/internal/pkg/errors"
)

// rawPayload mirrors coupon.Data with pointer fields so that absent keys are
// distinguishable from zero values during schema validation.
type rawPayload struct {
	Code      *string      `json:"code"`
	CreatedAt *time.Time   `json:"createdAt"`
	ExpiresAt *time.Time   `json:"expiresAt"`
	StoreID   *int64       `json:"storeId"`
	Store     *rawStore    `json:"store"`
	Discount  *rawDiscount `json:"discount"`
}

type rawStore struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Phone   string  `json:"phone"`
	Rating  float64 `json:"rating"`
}

type rawDiscount struct {
	Title        *string                     `json:"title"`
	Type         *string                     `json:"type"`
	Value        *float64                    `json:"value"`
	MinPurchase  float64                     `json:"minPurchase"`
	MaxDiscount  float64                     `json:"maxDiscount"`
	Availability []coupon.AvailabilityWindow `json:"availability"`
	Restrictions string                      `json:"restrictions"`
}

func marshalPayload(data *coupon.Data) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("nil coupon data")
	}
	if !data.ExpiresAt.After(data.CreatedAt) {
		return nil, &xerrors.SchemaError{Field: "expiresAt"}
	}
	return json.Marshal(data)
}

// parsePayload validates decrypted plaintext against the payload schema and
// returns the structured coupon. The first violated requirement names the
// offending field.
func parsePayload(plaintext []byte) (*coupon.Data, error) {
	var raw rawPayload
	if err := json.Unmarshal(plaintext, &raw); err != nil {
		return nil, &xerrors.SchemaError{Field: "payload"}
	}

	switch {
	case raw.Code == nil || *raw.Code == "":
		return nil, &xerrors.SchemaError{Field: "code"}
	case raw.ExpiresAt == nil:
		return nil, &xerrors.SchemaError{Field: "expiresAt"}
	case raw.CreatedAt == nil:
		return nil, &xerrors.SchemaError{Field: "createdAt"}
	case raw.StoreID == nil:
		return nil, &xerrors.SchemaError{Field: "storeId"}
	case raw.Store == nil:
		return nil, &xerrors.SchemaError{Field: "store"}
	case raw.Store.Name == "":
		return nil, &xerrors.SchemaError{Field: "store.name"}
	case raw.Discount == nil:
		return nil, &xerrors.SchemaError{Field: "discount"}
	case raw.Discount.Title == nil || *raw.Discount.Title == "":
		return nil, &xerrors.SchemaError{Field: "discount.title"}
	case raw.Discount.Type == nil:
		return nil, &xerrors.SchemaError{Field: "discount.type"}
	case raw.Discount.Value == nil:
		return nil, &xerrors.SchemaError{Field: "discount.value"}
	case !raw.ExpiresAt.After(*raw.CreatedAt):
		return nil, &xerrors.SchemaError{Field: "expiresAt"}
	}

	return &coupon.Data{
		Code:      *raw.Code,
		CreatedAt: *raw.CreatedAt,
		ExpiresAt: *raw.ExpiresAt,
		StoreID:   *raw.StoreID,
		Store: coupon.StoreSummary{
			Name:    raw.Store.Name,
			Address: raw.Store.Address,
			Phone:   raw.Store.Phone,
			Rating:  raw.Store.Rating,
		},
		Discount: coupon.DiscountSummary{
			Title:        *raw.Discount.Title,
			Type:         coupon.DiscountType(*raw.Discount.Type),
			Value:        *raw.Discount.Value,
			MinPurchase:  raw.Discount.MinPurchase,
			MaxDiscount:  raw.Discount.MaxDiscount,
			Availability: raw.Discount.Availability,
			Restrictions: raw.Discount.Restrictions,
		},
	}, nil
}
