package model

import "encoding/json"

// MarshalCanonicalCommitData renders a CommitData into the stable,
// object-key-ordered textual form spec.md section 6 requires: identical
// logical content must hash identically. encoding/json already sorts map
// keys alphabetically when marshaling map[string]T, and struct fields
// marshal in declaration order, so plain JSON satisfies the "stable
// object-key-ordered form" requirement without a bespoke canonicalizer.
func MarshalCanonicalCommitData(data CommitData) ([]byte, error) {
	return json.Marshal(data)
}

// UnmarshalCommitData decodes a CommitData payload previously produced by
// MarshalCanonicalCommitData.
func UnmarshalCommitData(raw []byte) (CommitData, error) {
	var data CommitData
	if err := json.Unmarshal(raw, &data); err != nil {
		return CommitData{}, err
	}
	return data, nil
}
