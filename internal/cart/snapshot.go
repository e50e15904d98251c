package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrSnapshotNotFound is returned by a Persister when nothing was saved yet.
	ErrSnapshotNotFound = errors.New("cart snapshot not found")
	// ErrMalformedSnapshot marks stored data that cannot be decoded into a valid cart.
	ErrMalformedSnapshot = errors.New("malformed cart snapshot")
)

// Snapshot is the persisted form of a cart. Version grows by one on every
// mutation; stores do not merge concurrent writers, the last save wins.
type Snapshot struct {
	Version   int64
	UpdatedAt time.Time
	Items     []LineItem
}

type snapshotJSON struct {
	Version   int64              `json:"version"`
	UpdatedAt time.Time          `json:"updated_at"`
	Items     []snapshotItemJSON `json:"items"`
}

type snapshotItemJSON struct {
	ProductID string          `json:"product_id"`
	Variant   string          `json:"variant,omitempty"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Version:   s.Version,
		UpdatedAt: s.UpdatedAt.UTC(),
		Items:     make([]snapshotItemJSON, 0, len(s.Items)),
	}
	for _, item := range s.Items {
		out.Items = append(out.Items, snapshotItemJSON{
			ProductID: item.Key.ProductID,
			Variant:   item.Key.Variant,
			Name:      item.Name,
			Image:     item.Image,
			Category:  item.Category,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return json.Marshal(out)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Version = in.Version
	s.UpdatedAt = in.UpdatedAt
	s.Items = make([]LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		s.Items = append(s.Items, LineItem{
			Key:       Key{ProductID: item.ProductID, Variant: item.Variant},
			Name:      item.Name,
			Image:     item.Image,
			Category:  item.Category,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return nil
}

// Validate checks the cart invariants on data read back from storage.
func (s Snapshot) Validate() error {
	seen := make(map[Key]struct{}, len(s.Items))
	for i, item := range s.Items {
		if item.Key.ProductID == "" {
			return fmt.Errorf("%w: item %d has no product id", ErrMalformedSnapshot, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %s has quantity %d", ErrMalformedSnapshot, item.Key, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %s has negative price", ErrMalformedSnapshot, item.Key)
		}
		if _, dup := seen[item.Key]; dup {
			return fmt.Errorf("%w: duplicate item %s", ErrMalformedSnapshot, item.Key)
		}
		seen[item.Key] = struct{}{}
	}
	return nil
}

// EncodeSnapshot serializes a snapshot for byte-oriented persisters.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode cart snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses and validates stored bytes. Any failure wraps
// ErrMalformedSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
