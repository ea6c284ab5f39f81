package campus

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// fingerprint mirrors the field set of a real browser fingerprint payload.
// The identity provider's bot check validates structure, not entropy: every
// field must be present and mutually consistent, but the identifying values
// only need to be plausible.
type fingerprint struct {
	DeviceID       string `json:"deviceId"`
	UserAgent      string `json:"userAgent"`
	Platform       string `json:"platform"`
	Language       string `json:"language"`
	ScreenWidth    int    `json:"screenWidth"`
	ScreenHeight   int    `json:"screenHeight"`
	ColorDepth     int    `json:"colorDepth"`
	PixelRatio     int    `json:"pixelRatio"`
	TimezoneOffset int    `json:"timezoneOffset"`
	Timezone       string `json:"timezone"`
	CanvasHash     string `json:"canvas"`
	WebGLHash      string `json:"webgl"`
	FontsHash      string `json:"fonts"`
	TouchSupport   bool   `json:"touchSupport"`
	CookiesEnabled bool   `json:"cookiesEnabled"`
}

// GenerateFingerprint synthesizes a browser-shaped fingerprint for login
// submissions. The platform, user agent, screen metrics, and timezone are
// kept consistent with each other; the device id and capability hashes are
// randomized per call.
func GenerateFingerprint() string {
	fp := fingerprint{
		DeviceID:       uuid.NewString(),
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		Platform:       "Win32",
		Language:       "zh-CN",
		ScreenWidth:    1920,
		ScreenHeight:   1080,
		ColorDepth:     24,
		PixelRatio:     1,
		TimezoneOffset: -480, // UTC+8
		Timezone:       "Asia/Shanghai",
		CanvasHash:     randomHash(),
		WebGLHash:      randomHash(),
		FontsHash:      randomHash(),
		TouchSupport:   false,
		CookiesEnabled: true,
	}

	payload, err := json.Marshal(fp)
	if err != nil {
		// Marshaling a struct of scalars cannot fail.
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(payload)
}

func randomHash() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
