package card

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"github.com/skip2/go-qrcode"

	"ms-membership/internal/models"
)

// QRGenerator renders the scannable membership card code. The payload is
// AES-encrypted so a venue scanner with the shared secret can verify a card
// offline without exposing member data in the QR itself.
type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

type cardPayload struct {
	MemberNo   string    `json:"member_no"`
	Tier       string    `json:"tier"`
	HolderName string    `json:"holder_name"`
	ValidUntil time.Time `json:"valid_until"`
}

func (q *QRGenerator) GenerateCardQR(m models.Membership) ([]byte, error) {
	data, err := json.Marshal(cardPayload{
		MemberNo:   m.MemberNo,
		Tier:       m.Tier,
		HolderName: m.HolderName,
		ValidUntil: m.ValidUntil,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, q.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
