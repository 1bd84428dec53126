package probe

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Envelope is the encrypted payload carried in subtitle download links
// (download.subtitle.to/?url=<base64 JSON>). The format matches CryptoJS
// AES output: base64 ciphertext plus hex IV and salt.
type Envelope struct {
	CipherText string `json:"ct"`
	IV         string `json:"iv"`
	Salt       string `json:"s"`
}

// FixBase64Padding appends the '=' padding stripped by URL encoders.
func FixBase64Padding(s string) string {
	if missing := len(s) % 4; missing != 0 {
		s += strings.Repeat("=", 4-missing)
	}
	return s
}

// DecodeLinkParam base64-decodes a subtitle link's url= parameter into its
// JSON envelope. Payloads that decode but carry no ciphertext are rejected.
func DecodeLinkParam(param string) (*Envelope, error) {
	decoded, err := base64.StdEncoding.DecodeString(FixBase64Padding(param))
	if err != nil {
		// Some links use the URL-safe alphabet
		decoded, err = base64.URLEncoding.DecodeString(FixBase64Padding(param))
		if err != nil {
			return nil, fmt.Errorf("failed to base64-decode link parameter: %w", err)
		}
	}

	var env Envelope
	if err := json.Unmarshal(decoded, &env); err != nil {
		return nil, fmt.Errorf("link parameter is not a JSON envelope: %w", err)
	}
	if env.CipherText == "" {
		return nil, fmt.Errorf("envelope carries no ciphertext")
	}

	return &env, nil
}

// ExtractLinkParam pulls the url= query parameter out of a full subtitle
// download link.
func ExtractLinkParam(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("failed to parse subtitle link: %w", err)
	}
	param := u.Query().Get("url")
	if param == "" {
		return "", fmt.Errorf("subtitle link carries no url parameter")
	}
	return param, nil
}

// Decrypt opens the envelope with a passphrase, using the OpenSSL EVP key
// derivation (MD5) and AES-256-CBC, the scheme CryptoJS defaults to.
func Decrypt(env *Envelope, passphrase string) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(FixBase64Padding(env.CipherText))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a multiple of the AES block size", len(ct))
	}

	salt, err := hex.DecodeString(env.Salt)
	if err != nil {
		return "", fmt.Errorf("failed to decode salt: %w", err)
	}

	key, derivedIV := evpKDF([]byte(passphrase), salt, 32, aes.BlockSize)

	iv := derivedIV
	if env.IV != "" {
		iv, err = hex.DecodeString(env.IV)
		if err != nil {
			return "", fmt.Errorf("failed to decode IV: %w", err)
		}
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("IV length %d is not the AES block size", len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ct)

	plaintext, err = pkcs7Unpad(plaintext)
	if err != nil {
		return "", fmt.Errorf("wrong passphrase or corrupt envelope: %w", err)
	}

	return string(plaintext), nil
}

// evpKDF implements OpenSSL's EVP_BytesToKey with MD5: repeated
// D_i = MD5(D_{i-1} || password || salt) until keyLen+ivLen bytes exist.
func evpKDF(password, salt []byte, keyLen, ivLen int) (key, iv []byte) {
	var derived []byte
	var prev []byte

	for len(derived) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(password)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}

	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-pad], nil
}
