package credential

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// Proof is the scannable payload binding an attendee row to its token. The
// JSON keys are the wire format and must round-trip exactly.
type Proof struct {
	AttendeeID int64  `json:"attendee_id"`
	UserID     int64  `json:"user_id"`
	EventID    int64  `json:"event_id"`
	Token      string `json:"token"`
	Username   string `json:"username"`
	EventName  string `json:"event_name"`
}

func EncodeProof(p Proof) ([]byte, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("EncodeProof: %w", err)
	}
	return payload, nil
}

func ParseProof(payload []byte) (Proof, error) {
	var p Proof
	if err := json.Unmarshal(payload, &p); err != nil {
		return Proof{}, fmt.Errorf("ParseProof: %w", err)
	}
	return p, nil
}

// Issuer writes QR credential images under Dir.
type Issuer struct {
	Dir string
}

// Issue encodes the proof into a QR PNG and returns its path relative to
// Dir. Error-correction level Low tolerates roughly 7% damage.
func (i *Issuer) Issue(p Proof) (string, error) {
	switch {
	case p.AttendeeID == 0:
		return "", fmt.Errorf("(*Issuer).Issue: attendee id is blank")
	case p.UserID == 0:
		return "", fmt.Errorf("(*Issuer).Issue: user id is blank")
	case p.EventID == 0:
		return "", fmt.Errorf("(*Issuer).Issue: event id is blank")
	case p.Token == "":
		return "", fmt.Errorf("(*Issuer).Issue: token is blank")
	}

	payload, err := EncodeProof(p)
	if err != nil {
		return "", fmt.Errorf("(*Issuer).Issue: %w", err)
	}

	if err := os.MkdirAll(i.Dir, 0o755); err != nil {
		return "", fmt.Errorf("(*Issuer).Issue: %w", err)
	}

	relPath := fmt.Sprintf("qr_%d_%d_%d.png", p.UserID, p.EventID, p.AttendeeID)
	if err := qrcode.WriteFile(
		string(payload),
		qrcode.Low,
		256,
		filepath.Join(i.Dir, relPath),
	); err != nil {
		return "", fmt.Errorf("(*Issuer).Issue: %w", err)
	}

	return relPath, nil
}

// Remove deletes an issued credential image. A missing file is not an error;
// the record it backed may already be gone.
func (i *Issuer) Remove(relPath string) error {
	if relPath == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(i.Dir, relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("(*Issuer).Remove: %w", err)
	}
	return nil
}
