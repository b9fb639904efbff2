// Package infosys decrypts the obfuscated match-statistics envelopes served
// by the ATP's Infosys endpoints. The key and IV are reconstructed from the
// envelope's lastModified timestamp; the arithmetic is vendor-defined and has
// to match bit for bit, so any drift in the format surfaces as a hard decode
// error rather than a guess.
package infosys

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
)

const keyMaterialLen = 16

var (
	// ErrBadBase64 marks a response field that is not valid base64.
	ErrBadBase64 = crerr.New("infosys: response is not valid base64")
	// ErrCipher marks key derivation or AES-CBC failures (bad lengths,
	// non-block-aligned ciphertext).
	ErrCipher = crerr.New("infosys: cipher failure")
	// ErrBadJSON marks a decrypt that succeeded mechanically but did not
	// yield valid JSON, which means the vendor format has drifted.
	ErrBadJSON = crerr.New("infosys: decrypted payload is not valid JSON")
)

// Envelope is the encrypted wire format returned by the statistics endpoints.
type Envelope struct {
	LastModified int64  `json:"lastModified"`
	Response     string `json:"response"`
}

// Decoder is stateless and safe for concurrent use.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// KeyMaterial derives the 16-character AES key string from an epoch-millisecond
// timestamp. The lowercase form is the key; its uppercase form is the CBC IV.
//
// The derivation reads the decimal digits of the timestamp as a base-16
// literal, renders that in base 36, appends the base-24 rendering of
// (year+reversed-year)*(day+reversed-day) for the UTC date, pads or truncates
// to 14 characters, and brackets the result with '#' and '$'.
func KeyMaterial(lastModified int64) (string, error) {
	if lastModified < 0 {
		return "", crerr.Wrapf(ErrCipher, "negative timestamp %d", lastModified)
	}

	ts := time.UnixMilli(lastModified).UTC()

	day := ts.Day()
	dayRev, err := strconv.Atoi(reverseDigits(zeroPad2(day)))
	if err != nil {
		return "", crerr.Wrapf(ErrCipher, "reverse day of %d", lastModified)
	}

	year := ts.Year()
	yearRev, err := strconv.Atoi(reverseDigits(strconv.Itoa(year)))
	if err != nil {
		return "", crerr.Wrapf(ErrCipher, "reverse year of %d", lastModified)
	}

	// Decimal digit string reinterpreted as a hex literal. Epoch-millisecond
	// timestamps have 13 digits, well inside uint64 as base 16.
	asHex, err := strconv.ParseUint(strconv.FormatInt(lastModified, 10), 16, 64)
	if err != nil {
		return "", crerr.Wrapf(ErrCipher, "timestamp %d does not parse as hex", lastModified)
	}

	o := strconv.FormatUint(asHex, 36) + strconv.FormatInt(int64((year+yearRev)*(day+dayRev)), 24)
	if len(o) < 14 {
		o += strings.Repeat("0", 14-len(o))
	} else if len(o) > 14 {
		o = o[:14]
	}

	return "#" + o + "$", nil
}

// Decode decrypts the envelope and returns the embedded JSON document.
func (d *Decoder) Decode(env Envelope) ([]byte, error) {
	material, err := KeyMaterial(env.LastModified)
	if err != nil {
		return nil, err
	}

	key := []byte(strings.ToLower(material))
	iv := []byte(strings.ToUpper(material))
	if len(key) != keyMaterialLen || len(iv) != keyMaterialLen {
		return nil, crerr.Wrapf(ErrCipher, "derived key material has length %d", len(key))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Response)
	if err != nil {
		return nil, crerr.WithSecondaryError(ErrBadBase64, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, crerr.Wrapf(ErrCipher, "ciphertext length %d is not a positive multiple of the block size", len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, crerr.WithSecondaryError(ErrCipher, err)
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	// The vendor pads the plaintext with a repeated trailing byte; strip the
	// run. A wrong key leaves garbage here, which the JSON check catches.
	trimmed := bytes.TrimRight(plain, string(plain[len(plain)-1:]))

	var doc any
	if err := sonic.Unmarshal(trimmed, &doc); err != nil {
		return nil, crerr.WithSecondaryError(ErrBadJSON, err)
	}

	return trimmed, nil
}

// DecodeRaw parses an encrypted endpoint body and decrypts it in one step.
func (d *Decoder) DecodeRaw(body []byte) ([]byte, error) {
	var env Envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return nil, crerr.WithSecondaryError(ErrBadJSON, err)
	}
	return d.Decode(env)
}

func zeroPad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func reverseDigits(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
