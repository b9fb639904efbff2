package infosys

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"strings"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestKeyMaterial_Shape(t *testing.T) {
	t.Parallel()

	timestamps := []int64{
		1700000000000, // 2023-11-14
		1577836800000, // 2020-01-01
		1735689600000, // 2025-01-01
		1262304000000, // 2010-01-01, day below 10
	}

	for _, ts := range timestamps {
		material, err := KeyMaterial(ts)
		require.NoError(t, err)
		require.Len(t, material, 16)
		require.True(t, strings.HasPrefix(material, "#"))
		require.True(t, strings.HasSuffix(material, "$"))
		require.Equal(t, strings.ToLower(material), material, "key material must be lowercase")

		again, err := KeyMaterial(ts)
		require.NoError(t, err)
		require.Equal(t, material, again, "derivation must be deterministic")
	}
}

func TestKeyMaterial_NegativeTimestamp(t *testing.T) {
	t.Parallel()

	_, err := KeyMaterial(-1)
	require.ErrorIs(t, err, ErrCipher)
}

func TestDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	const lastModified = int64(1700000000000)
	plaintext := `{"courtVision":[{"pointId":"1_1_1","serveSpeed":212}]}`

	env := Envelope{
		LastModified: lastModified,
		Response:     encryptForTest(t, lastModified, []byte(plaintext)),
	}

	got, err := NewDecoder().Decode(env)
	require.NoError(t, err)
	require.JSONEq(t, plaintext, string(got))
}

func TestDecode_BadBase64(t *testing.T) {
	t.Parallel()

	_, err := NewDecoder().Decode(Envelope{LastModified: 1700000000000, Response: "not-base64!!!"})
	require.ErrorIs(t, err, ErrBadBase64)
}

func TestDecode_UnalignedCiphertext(t *testing.T) {
	t.Parallel()

	short := base64.StdEncoding.EncodeToString([]byte("abc"))
	_, err := NewDecoder().Decode(Envelope{LastModified: 1700000000000, Response: short})
	require.ErrorIs(t, err, ErrCipher)
}

func TestDecode_WrongKeyYieldsBadJSON(t *testing.T) {
	t.Parallel()

	const lastModified = int64(1700000000000)
	ciphertext := encryptForTest(t, lastModified, []byte(`{"ok":true}`))

	// A different timestamp derives a different key, so the decrypt produces
	// garbage that must surface as a JSON error, never a fabricated payload.
	_, err := NewDecoder().Decode(Envelope{LastModified: lastModified + 86_400_000, Response: ciphertext})
	require.ErrorIs(t, err, ErrBadJSON)
}

func TestDecode_ErrorKindsAreDistinct(t *testing.T) {
	t.Parallel()

	require.False(t, crerr.Is(ErrBadBase64, ErrCipher))
	require.False(t, crerr.Is(ErrCipher, ErrBadJSON))
	require.False(t, crerr.Is(ErrBadJSON, ErrBadBase64))
}

// encryptForTest is the inverse of Decode: PKCS#7 pad, AES-CBC encrypt with
// the derived key/IV, base64 encode.
func encryptForTest(t *testing.T, lastModified int64, plaintext []byte) string {
	t.Helper()

	material, err := KeyMaterial(lastModified)
	require.NoError(t, err)

	block, err := aes.NewCipher([]byte(strings.ToLower(material)))
	require.NoError(t, err)

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, 0, len(plaintext)+padLen)
	padded = append(padded, plaintext...)
	for i := 0; i < padLen; i++ {
		padded = append(padded, byte(padLen))
	}

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(strings.ToUpper(material))).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out)
}
