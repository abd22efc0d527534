package jwt

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMetadataKey = "http://source.uri/metadata"
	testScopeKey    = "http://source.uri/scope"
)

func accessToken(scopes any) map[string]any {
	token := map[string]any{
		"sub": "user:12345",
		"iss": "https://test.issuer.com/",
		testMetadataKey: map[string]any{
			"clinician_id": "2543e23e-957e-4c85-8408-bff3dd0f775d",
			"locations": []any{
				map[string]any{"id": "L1", "name": "FlorenceWard"},
				map[string]any{"id": "L2", "name": "SouthWard"},
			},
			"job_title":    "Chief Carpal Tunnel Sufferer",
			"can_edit_ews": true,
		},
	}
	if scopes != nil {
		token[testScopeKey] = scopes
	}
	return token
}

func TestNormalizeClaims(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		scopes any
		want   []string
	}{
		{name: "no scope claim", scopes: nil, want: []string{}},
		{name: "single scope", scopes: "read:foo", want: []string{"read:foo"}},
		{name: "space delimited", scopes: "read:foo write:foo", want: []string{"read:foo", "write:foo"}},
		{name: "native list", scopes: []any{"read:foo", "write:foo"}, want: []string{"read:foo", "write:foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := accessToken(tt.scopes)
			identity, scopes, err := NormalizeClaims(raw, testMetadataKey, testScopeKey)
			require.NoError(t, err)

			assert.Equal(t, "2543e23e-957e-4c85-8408-bff3dd0f775d", identity["clinician_id"])
			assert.Equal(t, []any{"L1", "L2"}, identity[ClaimLocationIDs])
			assert.NotContains(t, identity, ClaimLocations)
			assert.Equal(t, true, identity["can_edit_ews"])
			assert.Equal(t, "Chief Carpal Tunnel Sufferer", identity["job_title"])
			assert.Equal(t, raw, identity.Raw())
			assert.Equal(t, "user:12345", identity.String("sub"))
			assert.Equal(t, "https://test.issuer.com/", identity.String("iss"))
			assert.Equal(t, tt.want, scopes)
		})
	}
}

func TestNormalizeClaims_AllMetadataKeysCopied(t *testing.T) {
	t.Parallel()

	referringDeviceID := uuid.NewString()
	someOtherID := uuid.NewString()

	raw := accessToken("read:foo")
	metadata := raw[testMetadataKey].(map[string]any)
	metadata["referring_device_id"] = referringDeviceID
	metadata["some_another_id"] = someOtherID

	identity, _, err := NormalizeClaims(raw, testMetadataKey, testScopeKey)
	require.NoError(t, err)

	assert.Equal(t, referringDeviceID, identity["referring_device_id"])
	assert.Equal(t, someOtherID, identity["some_another_id"])
	// metadata keys, location_ids, sub, iss, raw
	assert.Len(t, identity, len(metadata)+3)
}

func TestNormalizeClaims_CustomScopeKey(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"sub":         "user:12345",
		"iss":         "https://test.issuer.com/",
		"permissions": "read:something write:something",
	}

	identity, scopes, err := NormalizeClaims(raw, "dummy", "permissions")
	require.NoError(t, err)

	assert.Equal(t, "user:12345", identity["sub"])
	assert.Equal(t, []string{"read:something", "write:something"}, scopes)
}

func TestNormalizeClaims_RegisteredClaimsWin(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"sub":    "real-subject",
		"meta":   map[string]any{"sub": "spoofed", "patient_id": "p1"},
		"scopes": "a",
	}

	identity, _, err := NormalizeClaims(raw, "meta", "scopes")
	require.NoError(t, err)

	assert.Equal(t, "real-subject", identity["sub"])
	assert.Equal(t, "p1", identity["patient_id"])
	assert.NotContains(t, identity, "iss")
}

func TestNormalizeClaims_MissingOrInvalidMetadata(t *testing.T) {
	t.Parallel()

	for _, metadata := range []any{nil, "not-an-object", []any{1, 2}} {
		raw := map[string]any{"meta": metadata}
		identity, scopes, err := NormalizeClaims(raw, "meta", "scope")
		require.NoError(t, err)

		assert.Len(t, identity, 1)
		assert.Equal(t, raw, identity.Raw())
		assert.Empty(t, scopes)
	}
}

func TestNormalizeClaims_Locations(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"meta": map[string]any{
			"locations": []any{
				map[string]any{"id": "L9"},
				"garbage",
				map[string]any{"name": "no id"},
				map[string]any{"id": "L1"},
			},
		},
	}

	identity, _, err := NormalizeClaims(raw, "meta", "scope")
	require.NoError(t, err)
	assert.Equal(t, []any{"L9", "L1"}, identity[ClaimLocationIDs])

	raw["meta"] = map[string]any{"locations": "nope"}
	identity, _, err = NormalizeClaims(raw, "meta", "scope")
	require.NoError(t, err)
	assert.Equal(t, []any{}, identity[ClaimLocationIDs])
}

func TestNormalizeScopes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   any
		want    []string
		wantErr bool
	}{
		{name: "nil", value: nil, want: []string{}},
		{name: "empty string", value: "", want: []string{}},
		{name: "extra whitespace", value: "  a   b ", want: []string{"a", "b"}},
		{name: "string slice", value: []string{"a", "b"}, want: []string{"a", "b"}},
		{name: "any slice", value: []any{"a"}, want: []string{"a"}},
		{name: "nested list", value: []any{[]any{"read:foo", "write:foo"}}, wantErr: true},
		{name: "number", value: 42.0, wantErr: true},
		{name: "object", value: map[string]any{"a": true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeScopes(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrScopeFormat))
				assert.True(t, IsPermissionError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeClaims_InvalidScopeIsPermissionError(t *testing.T) {
	t.Parallel()

	raw := accessToken([]any{[]any{"read:foo", "write:foo"}})
	_, _, err := NormalizeClaims(raw, testMetadataKey, testScopeKey)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
