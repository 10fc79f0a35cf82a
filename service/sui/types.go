package sui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SequenceNumber is an object version. Fullnodes encode it as a decimal
// string in newer releases and as a JSON number in older ones; both decode.
type SequenceNumber uint64

func (s *SequenceNumber) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid sequence number %q: %w", data, err)
	}
	*s = SequenceNumber(v)
	return nil
}

func (s SequenceNumber) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(s), 10))), nil
}

// ObjectDataOptions selects which parts of an object sui_getObject returns.
type ObjectDataOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowOwner   bool `json:"showOwner,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
}

// ObjectResponse is the envelope returned by sui_getObject.
// Exactly one of Data and Error is set by a well-behaved node.
type ObjectResponse struct {
	Data  *ObjectData          `json:"data,omitempty"`
	Error *ObjectResponseError `json:"error,omitempty"`
}

// ObjectResponseError describes why an object could not be returned.
type ObjectResponseError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id,omitempty"`
	Version  string `json:"version,omitempty"`
	Digest   string `json:"digest,omitempty"`
}

func (e *ObjectResponseError) Error() string {
	if e.ObjectID != "" {
		return fmt.Sprintf("object %s: %s", e.ObjectID, e.Code)
	}
	return e.Code
}

// ObjectData is the on-chain state of a single object.
type ObjectData struct {
	ObjectID string         `json:"objectId"`
	Version  SequenceNumber `json:"version"`
	Digest   string         `json:"digest"`
	Type     string         `json:"type,omitempty"`
	Owner    *Owner         `json:"owner,omitempty"`
	Content  *MoveContent   `json:"content,omitempty"`
}

// Ref returns the (id, version, digest) triple used to pass the object as an owned input.
func (d *ObjectData) Ref() ObjectRef {
	return ObjectRef{ObjectID: d.ObjectID, Version: uint64(d.Version), Digest: d.Digest}
}

// MoveContent is the parsed Move value of an object. Packages have
// dataType "package" and no fields.
type MoveContent struct {
	DataType          string          `json:"dataType"`
	Type              string          `json:"type,omitempty"`
	HasPublicTransfer bool            `json:"hasPublicTransfer,omitempty"`
	Fields            json.RawMessage `json:"fields,omitempty"`
}

// HasFields reports whether the content carries a structured field object.
func (c *MoveContent) HasFields() bool {
	if c == nil || len(c.Fields) == 0 {
		return false
	}
	trimmed := bytes.TrimSpace(c.Fields)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// DecodeFields decodes the field object into a map, keeping numbers as json.Number.
func (c *MoveContent) DecodeFields() (map[string]any, error) {
	if !c.HasFields() {
		return nil, fmt.Errorf("content has no fields")
	}
	dec := json.NewDecoder(bytes.NewReader(c.Fields))
	dec.UseNumber()
	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return fields, nil
}

// OwnerKind classifies object ownership.
type OwnerKind string

const (
	OwnerAddress   OwnerKind = "AddressOwner"
	OwnerObject    OwnerKind = "ObjectOwner"
	OwnerShared    OwnerKind = "Shared"
	OwnerImmutable OwnerKind = "Immutable"
	OwnerConsensus OwnerKind = "ConsensusAddressOwner"
)

// Owner is the ownership of an object. The node encodes it either as the
// bare string "Immutable" or as a single-key object.
type Owner struct {
	Kind                 OwnerKind
	Address              string
	InitialSharedVersion uint64
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != string(OwnerImmutable) {
			return fmt.Errorf("unknown owner %q", s)
		}
		*o = Owner{Kind: OwnerImmutable}
		return nil
	}

	var raw struct {
		AddressOwner *string `json:"AddressOwner"`
		ObjectOwner  *string `json:"ObjectOwner"`
		Shared       *struct {
			InitialSharedVersion SequenceNumber `json:"initial_shared_version"`
		} `json:"Shared"`
		ConsensusAddressOwner *struct {
			Owner        string         `json:"owner"`
			StartVersion SequenceNumber `json:"start_version"`
		} `json:"ConsensusAddressOwner"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}

	switch {
	case raw.AddressOwner != nil:
		*o = Owner{Kind: OwnerAddress, Address: *raw.AddressOwner}
	case raw.ObjectOwner != nil:
		*o = Owner{Kind: OwnerObject, Address: *raw.ObjectOwner}
	case raw.Shared != nil:
		*o = Owner{Kind: OwnerShared, InitialSharedVersion: uint64(raw.Shared.InitialSharedVersion)}
	case raw.ConsensusAddressOwner != nil:
		*o = Owner{
			Kind:                 OwnerConsensus,
			Address:              raw.ConsensusAddressOwner.Owner,
			InitialSharedVersion: uint64(raw.ConsensusAddressOwner.StartVersion),
		}
	default:
		return fmt.Errorf("unknown owner %s", string(data))
	}
	return nil
}

// ObjectRef identifies an exact version of an owned object.
type ObjectRef struct {
	ObjectID string
	Version  uint64
	Digest   string
}

// Coin is one spendable coin object as returned by suix_getCoins.
type Coin struct {
	CoinType            string         `json:"coinType"`
	CoinObjectID        string         `json:"coinObjectId"`
	Version             SequenceNumber `json:"version"`
	Digest              string         `json:"digest"`
	Balance             string         `json:"balance"`
	PreviousTransaction string         `json:"previousTransaction,omitempty"`
}

// BalanceMist parses the balance string.
func (c Coin) BalanceMist() (uint64, error) {
	v, err := strconv.ParseUint(c.Balance, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("coin %s: invalid balance %q: %w", c.CoinObjectID, c.Balance, err)
	}
	return v, nil
}

// Ref returns the coin's object reference.
func (c Coin) Ref() ObjectRef {
	return ObjectRef{ObjectID: c.CoinObjectID, Version: uint64(c.Version), Digest: c.Digest}
}

// CoinPage is one page of suix_getCoins results.
type CoinPage struct {
	Data        []Coin  `json:"data"`
	NextCursor  *string `json:"nextCursor,omitempty"`
	HasNextPage bool    `json:"hasNextPage"`
}
