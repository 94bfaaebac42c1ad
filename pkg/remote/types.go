package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Feature describes a flag definition as returned by the API.
type Feature struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Flag is the state of one feature for an environment or identity.
// Value is nil when the feature carries no remote-config value.
type Flag struct {
	Feature Feature `json:"feature"`
	Enabled bool    `json:"enabled"`
	Value   *string `json:"feature_state_value"`
}

// Name returns the feature name the flag belongs to.
func (f Flag) Name() string { return f.Feature.Name }

// UnmarshalJSON accepts string, number, boolean and null feature values.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var aux struct {
		Feature Feature         `json:"feature"`
		Enabled bool            `json:"enabled"`
		Value   json.RawMessage `json:"feature_state_value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v, err := normalizeValue(aux.Value)
	if err != nil {
		return fmt.Errorf("flag %q: %w", aux.Feature.Name, err)
	}
	*f = Flag{Feature: aux.Feature, Enabled: aux.Enabled, Value: v}
	return nil
}

// Trait is a key/value attribute attached to an identity.
type Trait struct {
	Key   string `json:"trait_key"`
	Value string `json:"trait_value"`
}

func (t *Trait) UnmarshalJSON(data []byte) error {
	var aux struct {
		Key   string          `json:"trait_key"`
		Value json.RawMessage `json:"trait_value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v, err := normalizeValue(aux.Value)
	if err != nil {
		return fmt.Errorf("trait %q: %w", aux.Key, err)
	}
	*t = Trait{Key: aux.Key}
	if v != nil {
		t.Value = *v
	}
	return nil
}

// Identity identifies an end user.
type Identity struct {
	Identifier string `json:"identifier"`
}

// TraitWithIdentity is the body of a trait upsert and its echo.
type TraitWithIdentity struct {
	Key      string   `json:"trait_key"`
	Value    string   `json:"trait_value"`
	Identity Identity `json:"identity"`
}

func (t *TraitWithIdentity) UnmarshalJSON(data []byte) error {
	var tr Trait
	if err := json.Unmarshal(data, &tr); err != nil {
		return err
	}
	var aux struct {
		Identity Identity `json:"identity"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = TraitWithIdentity{Key: tr.Key, Value: tr.Value, Identity: aux.Identity}
	return nil
}

// Trait returns the trait without its identity.
func (t TraitWithIdentity) Trait() Trait {
	return Trait{Key: t.Key, Value: t.Value}
}

// IdentityFlagsAndTraits is the identity endpoint payload.
type IdentityFlagsAndTraits struct {
	Flags  []Flag  `json:"flags"`
	Traits []Trait `json:"traits"`
}

// normalizeValue maps a JSON scalar to its string form. Null and absent map to nil.
func normalizeValue(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var s string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		s = strconv.FormatBool(b)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		s = buf.String()
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		s = n.String()
	}
	return &s, nil
}
